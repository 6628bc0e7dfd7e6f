package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/geocoder89/givehub/internal/domain/donation"
	"github.com/geocoder89/givehub/internal/domain/event"
	"github.com/geocoder89/givehub/internal/domain/role"
	"github.com/geocoder89/givehub/internal/domain/user"
)

// ErrMissingClientSecret is returned when intent creation succeeds without a secret.
var ErrMissingClientSecret = errors.New("payment intent response has no client secret")

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     role.Role `json:"role"`
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type VolunteerRegistration struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
}

// --- Auth ---

// Login exchanges credentials for an identity and bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*user.AuthResult, error) {
	var res user.AuthResult
	if err := c.postPublic(ctx, "/auth/login", req, &res); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &res, nil
}

// Register creates an account and returns it with a bearer token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*user.AuthResult, error) {
	var res user.AuthResult
	if err := c.postPublic(ctx, "/auth/register", req, &res); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &res, nil
}

// ListUsers lists accounts, filtered by role when r is non-empty.
func (c *Client) ListUsers(ctx context.Context, r role.Role) ([]user.User, error) {
	path := "/auth/users"
	if r != "" {
		path += "?" + url.Values{"role": {r.String()}}.Encode()
	}

	var users []user.User
	if err := c.get(ctx, path, &users); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return users, nil
}

// --- Events ---

func (c *Client) ListEvents(ctx context.Context) ([]event.Event, error) {
	var events []event.Event
	if err := c.get(ctx, "/events", &events); err != nil {
		return nil, fmt.Errorf("client.ListEvents: %w", err)
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	var ev event.Event
	if err := c.get(ctx, "/events/"+url.PathEscape(id), &ev); err != nil {
		return nil, fmt.Errorf("client.GetEvent: %w", err)
	}
	return &ev, nil
}

func (c *Client) CreateEvent(ctx context.Context, p event.Payload) (*event.Event, error) {
	var ev event.Event
	if err := c.post(ctx, "/events", p, &ev); err != nil {
		return nil, fmt.Errorf("client.CreateEvent: %w", err)
	}
	return &ev, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id string, p event.Payload) (*event.Event, error) {
	var ev event.Event
	if err := c.Do(ctx, http.MethodPut, "/events/"+url.PathEscape(id), p, &ev); err != nil {
		return nil, fmt.Errorf("client.UpdateEvent: %w", err)
	}
	return &ev, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if err := c.Do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteEvent: %w", err)
	}
	return nil
}

// --- Donations ---

func (c *Client) ListDonations(ctx context.Context) ([]donation.Record, error) {
	var records []donation.Record
	if err := c.get(ctx, "/donations", &records); err != nil {
		return nil, fmt.Errorf("client.ListDonations: %w", err)
	}
	return records, nil
}

// CreatePaymentIntent asks the backend to open a charge for amount.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount donation.Amount) (*donation.Intent, error) {
	var res donation.IntentResponse
	if err := c.post(ctx, "/donations/stripe-payment", donation.IntentRequest{Amount: amount}, &res); err != nil {
		return nil, fmt.Errorf("client.CreatePaymentIntent: %w", err)
	}

	// not an *Error: the caller decides what the donor is told
	if res.ClientSecret == "" {
		return nil, fmt.Errorf("client.CreatePaymentIntent: %w", ErrMissingClientSecret)
	}

	return &donation.Intent{Amount: amount, ClientSecret: res.ClientSecret}, nil
}

// RecordDonation writes a confirmed charge to the backend ledger.
func (c *Client) RecordDonation(ctx context.Context, req donation.RecordRequest) (*donation.Record, error) {
	var rec donation.Record
	if err := c.post(ctx, "/donations/donate", req, &rec); err != nil {
		return nil, fmt.Errorf("client.RecordDonation: %w", err)
	}
	return &rec, nil
}

// --- Users ---

func (c *Client) GetUser(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := c.get(ctx, "/users/"+url.PathEscape(id), &u); err != nil {
		return nil, fmt.Errorf("client.GetUser: %w", err)
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*user.User, error) {
	var u user.User
	if err := c.Do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, &u); err != nil {
		return nil, fmt.Errorf("client.UpdateUser: %w", err)
	}
	return &u, nil
}

// --- Volunteers ---

// ListVolunteerEvents returns the events userID has signed up for.
func (c *Client) ListVolunteerEvents(ctx context.Context, userID string) ([]event.Event, error) {
	var events []event.Event
	if err := c.get(ctx, "/volunteers/"+url.PathEscape(userID)+"/events", &events); err != nil {
		return nil, fmt.Errorf("client.ListVolunteerEvents: %w", err)
	}
	return events, nil
}

func (c *Client) RegisterVolunteer(ctx context.Context, req VolunteerRegistration) error {
	if err := c.post(ctx, "/volunteers/register", req, nil); err != nil {
		return fmt.Errorf("client.RegisterVolunteer: %w", err)
	}
	return nil
}

package event

import (
	"encoding/json"
	"errors"
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status,omitempty"`
}

var ErrNotFound = errors.New("event not found")

// the backend keys documents by "_id"; accept either spelling
func (e *Event) UnmarshalJSON(b []byte) error {
	type alias Event
	var raw struct {
		alias
		MongoID string `json:"_id"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*e = Event(raw.alias)
	if e.ID == "" {
		e.ID = raw.MongoID
	}
	return nil
}

// DisplayStatus falls back to "Upcoming" when the backend omits a status.
func (e Event) DisplayStatus() string {
	if e.Status == "" {
		return "Upcoming"
	}
	return e.Status
}

// dateLayout matches the value produced by <input type="datetime-local">.
const dateLayout = "2006-01-02T15:04"

// Form is bound from the admin create/edit form.
type Form struct {
	Title       string `form:"title" binding:"required,min=3,max=120"`
	Description string `form:"description" binding:"required,max=2000"`
	Date        string `form:"date" binding:"required,datetime=2006-01-02T15:04"`
	Location    string `form:"location" binding:"required,min=2,max=120"`
}

// Payload is the JSON body sent to POST/PUT /events.
type Payload struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
}

func (f Form) Payload() (Payload, error) {
	d, err := time.ParseInLocation(dateLayout, f.Date, time.Local)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Title:       f.Title,
		Description: f.Description,
		Date:        d,
		Location:    f.Location,
	}, nil
}

// FormFrom pre-fills the edit form.
func FormFrom(e Event) Form {
	return Form{
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date.Local().Format(dateLayout),
		Location:    e.Location,
	}
}

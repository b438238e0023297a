package types

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// Campaign is a single campaign as returned by the listing endpoint.
// Only ID matters to the cache; the display fields are lifted out of Raw
// for the views and Raw is what gets serialized, so fields this client
// does not know about survive a round trip untouched.
type Campaign struct {
	ID         string
	Title      string
	BrandName  string
	Status     string // OPEN, CLOSED, ...
	UserStatus string // application status for the current user, "" if not applied
	BriefURL   string
	Deadline   string // application_deadline, as sent by the server
	Raw        json.RawMessage
}

// CampaignFromJSON builds a Campaign from one raw JSON object.
func CampaignFromJSON(raw []byte) (Campaign, error) {
	if !gjson.ValidBytes(raw) {
		return Campaign{}, errors.New("campaign: invalid json")
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return Campaign{}, errors.New("campaign: not an object")
	}
	c := Campaign{
		ID:         r.Get("id").String(),
		Title:      r.Get("title").String(),
		BrandName:  r.Get("brand_name").String(),
		Status:     r.Get("status").String(),
		UserStatus: r.Get("user_status").String(),
		BriefURL:   r.Get("brief_url").String(),
		Deadline:   r.Get("application_deadline").String(),
	}
	c.Raw = append(json.RawMessage(nil), raw...)
	return c, nil
}

// MarshalJSON writes the original server representation.
func (c Campaign) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	return json.Marshal(map[string]string{
		"id":                   c.ID,
		"title":                c.Title,
		"brand_name":           c.BrandName,
		"status":               c.Status,
		"user_status":          c.UserStatus,
		"brief_url":            c.BriefURL,
		"application_deadline": c.Deadline,
	})
}

func (c *Campaign) UnmarshalJSON(data []byte) error {
	parsed, err := CampaignFromJSON(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// PageRequest asks the listing endpoint for one page.
type PageRequest struct {
	Page     int    // 1-based
	PageSize int
	Filter   string // server-side status filter; "" for no filter
}

// Page is one batch of campaigns.
type Page struct {
	Items       []Campaign
	HasNextPage bool
}

package types

import (
	"encoding/json"
	"testing"
)

func TestCampaignFromJSON(t *testing.T) {
	raw := `{"id":42,"uuid":"9b1c","title":"Summer Skincare","brand_name":"Glow Lab","status":"OPEN","user_status":"WAITING","brief_url":"https://example.com/brief","application_deadline":"2026-05-01","budget":"5000.00"}`
	c, err := CampaignFromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("CampaignFromJSON: %v", err)
	}
	if c.ID != "42" || c.Title != "Summer Skincare" || c.BrandName != "Glow Lab" {
		t.Errorf("got %+v", c)
	}
	if c.Status != "OPEN" || c.UserStatus != "WAITING" || c.Deadline != "2026-05-01" {
		t.Errorf("got %+v", c)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != raw {
		t.Errorf("Marshal = %s, want original bytes", out)
	}
}

func TestCampaignFromJSONErrors(t *testing.T) {
	for _, raw := range []string{``, `{`, `[1]`, `"x"`, `7`} {
		if _, err := CampaignFromJSON([]byte(raw)); err == nil {
			t.Errorf("CampaignFromJSON(%q) = nil error", raw)
		}
	}
}

func TestCampaignMarshalWithoutRaw(t *testing.T) {
	out, err := json.Marshal(Campaign{ID: "1", Title: "T"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Campaign
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID != "1" || back.Title != "T" {
		t.Errorf("got %+v", back)
	}
}

package draft

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Key is the storage key of the registration draft.
const Key = "registration_draft"

// Draft is the multi-step creator registration form in progress.
type Draft struct {
	Step        int        `json:"step"`
	Data        Data       `json:"data"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

type Data struct {
	Interests      []string       `json:"interests"`
	WorkConditions WorkConditions `json:"workConditions"`
	PersonalInfo   PersonalInfo   `json:"personalInfo"`
}

type WorkConditions struct {
	BoostPrice        string          `json:"boostPrice"`
	OriginalFilePrice string          `json:"originalFilePrice"`
	SocialAccounts    []SocialAccount `json:"socialAccounts"`
}

type SocialAccount struct {
	Platform  string `json:"platform"`
	Username  string `json:"username"`
	URL       string `json:"url,omitempty"`
	Followers string `json:"followers,omitempty"`
}

// PersonalInfo holds contact and address details. SubDistrict is the
// tambon/khwaeng, District the amphoe/khet.
type PersonalInfo struct {
	FullNameTH  string `json:"fullNameTh"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dateOfBirth"`
	HouseNo     string `json:"houseNo"`
	Village     string `json:"village"`
	Moo         string `json:"moo"`
	Soi         string `json:"soi"`
	Road        string `json:"road"`
	SubDistrict string `json:"subDistrict"`
	District    string `json:"district"`
	Province    string `json:"province"`
	Zipcode     string `json:"zipcode"`
}

// Default returns an empty draft on step 1.
func Default() Draft {
	return Draft{
		Step: 1,
		Data: Data{
			Interests:      []string{},
			WorkConditions: WorkConditions{SocialAccounts: []SocialAccount{}},
		},
	}
}

// Decode parses a stored draft over Default.
func Decode(data string) (Draft, error) {
	d := Default()
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return Default(), fmt.Errorf("decode draft: %w", err)
	}
	if d.Data.Interests == nil {
		d.Data.Interests = []string{}
	}
	if d.Data.WorkConditions.SocialAccounts == nil {
		d.Data.WorkConditions.SocialAccounts = []SocialAccount{}
	}
	return d, nil
}

// Encode returns the stored representation of d.
func Encode(d Draft) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return string(b), nil
}

func (d Draft) clone() Draft {
	cp := d
	cp.Data.Interests = append([]string{}, d.Data.Interests...)
	cp.Data.WorkConditions.SocialAccounts = append([]SocialAccount{}, d.Data.WorkConditions.SocialAccounts...)
	if d.LastUpdated != nil {
		t := *d.LastUpdated
		cp.LastUpdated = &t
	}
	return cp
}

// personalFields maps the CLI field names to PersonalInfo fields.
var personalFields = map[string]func(*PersonalInfo) *string{
	"full-name":     func(p *PersonalInfo) *string { return &p.FullNameTH },
	"phone":         func(p *PersonalInfo) *string { return &p.Phone },
	"email":         func(p *PersonalInfo) *string { return &p.Email },
	"date-of-birth": func(p *PersonalInfo) *string { return &p.DateOfBirth },
	"house-no":      func(p *PersonalInfo) *string { return &p.HouseNo },
	"village":       func(p *PersonalInfo) *string { return &p.Village },
	"moo":           func(p *PersonalInfo) *string { return &p.Moo },
	"soi":           func(p *PersonalInfo) *string { return &p.Soi },
	"road":          func(p *PersonalInfo) *string { return &p.Road },
	"sub-district":  func(p *PersonalInfo) *string { return &p.SubDistrict },
	"district":      func(p *PersonalInfo) *string { return &p.District },
	"province":      func(p *PersonalInfo) *string { return &p.Province },
	"zipcode":       func(p *PersonalInfo) *string { return &p.Zipcode },
}

// SetPersonalField returns an UpdatePersonalInfo func that sets the
// field named name (e.g. "phone", "sub-district").
func SetPersonalField(name, value string) (func(*PersonalInfo), error) {
	field, ok := personalFields[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name)
	}
	return func(p *PersonalInfo) { *field(p) = value }, nil
}

package directory

import (
	"strings"

	"idsearch/internal/lookup/models"
	"idsearch/pkg/email"
)

type peopleResponse struct {
	Total  int      `json:"total"`
	People []person `json:"people"`
}

// person mirrors the directory's attribute names.
type person struct {
	ID                   string            `json:"id"`
	Mail                 string            `json:"mail"`
	DisplayName          string            `json:"displayName"`
	GivenName            string            `json:"givenName"`
	Surname              string            `json:"sn"`
	Department           string            `json:"department"`
	Title                string            `json:"title"`
	AccountStatus        string            `json:"accountStatus"`
	AccountName          string            `json:"sAMAccountName"`
	EmployeeID           string            `json:"employeeID"`
	Manager              string            `json:"manager"`
	Office               string            `json:"physicalDeliveryOfficeName"`
	TelephoneNumber      string            `json:"telephoneNumber"`
	Extension            string            `json:"extensionAttribute1"`
	DirectDial           string            `json:"directDial"`
	IPPhone              string            `json:"ipPhone"`
	Mobile               string            `json:"mobile"`
	WhenCreated          string            `json:"whenCreated"`
	PwdLastSet           string            `json:"pwdLastSet"`
	PasswordNeverExpires *bool             `json:"passwordNeverExpires"`
	PasswordPolicy       string            `json:"msDS-ResultantPSO"`
	LockedOut            *bool             `json:"lockedOut"`
	AccountExpires       string            `json:"accountExpires"`
	LastLogon            string            `json:"lastLogonTimestamp"`
	Extra                map[string]string `json:"extra"`
}

func (p person) toRecord() models.PartialRecord {
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(p.GivenName) + " " + strings.TrimSpace(p.Surname))
	}

	attrs := make(map[string]string, len(p.Extra)+16)
	for k, v := range p.Extra {
		attrs[normalizeKey(k)] = strings.TrimSpace(v)
	}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			attrs[key] = v
		}
	}
	set(models.AttrUsername, p.AccountName)
	set(models.AttrEmployeeID, p.EmployeeID)
	set(models.AttrManager, p.Manager)
	set(models.AttrLocation, p.Office)
	set(models.AttrPrimaryLine, p.TelephoneNumber)
	set(models.AttrExtension, p.Extension)
	set(models.AttrDirectDial, p.DirectDial)
	set(models.AttrLegacyExtension, p.IPPhone)
	set(models.AttrMobile, p.Mobile)
	set(models.AttrHireDate, p.WhenCreated)
	set(models.AttrPasswordLastSet, p.PwdLastSet)
	set(models.AttrPasswordPolicy, p.PasswordPolicy)
	set(models.AttrAccountExpires, p.AccountExpires)
	set(models.AttrLastLogon, p.LastLogon)
	if p.PasswordNeverExpires != nil {
		set(models.AttrPasswordNeverExpires, boolString(*p.PasswordNeverExpires))
	}
	if p.LockedOut != nil {
		set(models.AttrAccountLocked, boolString(*p.LockedOut))
	}

	return models.PartialRecord{
		Source:      models.SourceDirectory,
		SourceID:    strings.TrimSpace(p.ID),
		Email:       email.Canonical(p.Mail),
		DisplayName: name,
		Department:  strings.TrimSpace(p.Department),
		Title:       strings.TrimSpace(p.Title),
		Status:      strings.ToLower(strings.TrimSpace(p.AccountStatus)),
		Attributes:  attrs,
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// normalizeKey turns camelCase and dashed directory names into snake_case.
func normalizeKey(k string) string {
	var b strings.Builder
	var prev rune
	underscore := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}
	for _, r := range strings.TrimSpace(k) {
		switch {
		case r >= 'A' && r <= 'Z':
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				underscore()
			}
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ' || r == '.' || r == '_':
			underscore()
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return strings.TrimSuffix(b.String(), "_")
}

package models

// Normalized attribute names. Adapters translate backend field names into
// these at the boundary; anything else is kept under its own snake_case name.
const (
	AttrDisplayName = "display_name"
	AttrEmail       = "email"
	AttrTitle       = "title"
	AttrDepartment  = "department"
	AttrStatus      = "status"
	AttrEmployeeID  = "employee_id"
	AttrManager     = "manager"
	AttrLocation    = "location"
	AttrUsername    = "username"
	AttrHireDate    = "hire_date"

	AttrPasswordLastSet      = "password_last_set"
	AttrPasswordExpires      = "password_expires"
	AttrPasswordNeverExpires = "password_never_expires"
	AttrPasswordPolicy       = "password_policy"
	AttrAccountLocked        = "account_locked"
	AttrAccountExpires       = "account_expires"
	AttrLastLogon            = "last_logon"

	AttrPrimaryLine     = "telephone_number"
	AttrExtension       = "extension"
	AttrDirectDial      = "direct_dial"
	AttrLegacyExtension = "legacy_extension"
	AttrMobile          = "mobile"
)

// Fields folds the typed identity fields into a copy of the raw attributes.
// Typed fields win over raw attributes of the same name; empty values are
// omitted.
func (r PartialRecord) Fields() map[string]string {
	out := make(map[string]string, len(r.Attributes)+5)
	for k, v := range r.Attributes {
		if v != "" {
			out[k] = v
		}
	}
	for k, v := range map[string]string{
		AttrDisplayName: r.DisplayName,
		AttrEmail:       r.Email,
		AttrTitle:       r.Title,
		AttrDepartment:  r.Department,
		AttrStatus:      r.Status,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

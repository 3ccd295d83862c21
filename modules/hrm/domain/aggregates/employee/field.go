package employee

// Field is the JSON name of a canonical employee field.
type Field string

const (
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldEmployeeID   Field = "employeeId"
	FieldPhoneNumber  Field = "phoneNumber"
	FieldBranchCode   Field = "branchCode"
	FieldRole         Field = "role"
	FieldCustomRole   Field = "customRole"
	FieldStatus       Field = "status"
	FieldDesignation  Field = "designation"
	FieldLeaveBalance Field = "leaveBalanceByExperience"

	// FieldCampus is never read from the sheet. It is stamped from the operator's campus.
	FieldCampus Field = "campus"
)

const (
	DefaultStatus       = "active"
	DefaultLeaveBalance = "12"

	RoleOther = "other"
)

// CanonicalField describes one target column of the import and the header spellings it accepts.
type CanonicalField struct {
	Field    Field    `json:"field"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Default  string   `json:"default,omitempty"`
	Variants []string `json:"variants"`
}

// CanonicalFields is ordered; the order drives mapping, reports and the import template.
var CanonicalFields = []CanonicalField{
	{
		Field:    FieldName,
		Label:    "Name",
		Required: true,
		Variants: []string{"name", "full name", "employee name", "emp name", "staff name"},
	},
	{
		Field:    FieldEmail,
		Label:    "Email",
		Variants: []string{"email", "email address", "mail", "email id"},
	},
	{
		Field:    FieldEmployeeID,
		Label:    "Employee ID",
		Required: true,
		Variants: []string{"employee id", "emp id", "staff id", "employee code", "emp code"},
	},
	{
		Field:    FieldPhoneNumber,
		Label:    "Phone Number",
		Required: true,
		Variants: []string{"phone number", "phone", "mobile", "mobile number", "contact", "contact number", "phone no"},
	},
	{
		Field:    FieldBranchCode,
		Label:    "Branch Code",
		Required: true,
		Variants: []string{"branch code", "branch", "dept", "department", "dept code"},
	},
	{
		Field:    FieldRole,
		Label:    "Role",
		Variants: []string{"role", "user role", "role type"},
	},
	{
		Field:    FieldCustomRole,
		Label:    "Custom Role",
		Variants: []string{"custom role", "other role"},
	},
	{
		Field:    FieldStatus,
		Label:    "Status",
		Default:  DefaultStatus,
		Variants: []string{"status", "account status", "state", "active"},
	},
	{
		Field:    FieldDesignation,
		Label:    "Designation",
		Variants: []string{"designation", "job title", "title", "position", "post"},
	},
	{
		Field:    FieldLeaveBalance,
		Label:    "Leave Balance By Experience",
		Default:  DefaultLeaveBalance,
		Variants: []string{"leave balance by experience", "leave balance", "leaves", "balance"},
	},
}

// EditableFields are the fields an operator may change on a loaded row.
var EditableFields = func() map[Field]bool {
	out := map[Field]bool{FieldCampus: true}
	for _, f := range CanonicalFields {
		out[f.Field] = true
	}
	return out
}()

func LookupField(name string) (CanonicalField, bool) {
	for _, f := range CanonicalFields {
		if string(f.Field) == name {
			return f, true
		}
	}
	return CanonicalField{}, false
}

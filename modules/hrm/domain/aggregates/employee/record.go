package employee

// Cell is one column of a sheet row: the header as authored and the cell text.
type Cell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// RawRow keeps the sheet's column order. Missing cells are present with an empty value.
type RawRow []Cell

func (r RawRow) Headers() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Header
	}
	return out
}

type Branch struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type Role struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Record is one mapped spreadsheet row. Branches and Roles are the campus reference data the
// row is validated against; they are never serialized with the record.
type Record struct {
	Name                     string `json:"name"`
	Email                    string `json:"email"`
	EmployeeID               string `json:"employeeId"`
	PhoneNumber              string `json:"phoneNumber"`
	BranchCode               string `json:"branchCode"`
	Role                     string `json:"role"`
	CustomRole               string `json:"customRole"`
	Status                   string `json:"status"`
	Designation              string `json:"designation"`
	LeaveBalanceByExperience string `json:"leaveBalanceByExperience"`
	Campus                   string `json:"campus"`

	Branches []Branch `json:"-"`
	Roles    []Role   `json:"-"`
}

func (r *Record) ref(f Field) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldEmail:
		return &r.Email
	case FieldEmployeeID:
		return &r.EmployeeID
	case FieldPhoneNumber:
		return &r.PhoneNumber
	case FieldBranchCode:
		return &r.BranchCode
	case FieldRole:
		return &r.Role
	case FieldCustomRole:
		return &r.CustomRole
	case FieldStatus:
		return &r.Status
	case FieldDesignation:
		return &r.Designation
	case FieldLeaveBalance:
		return &r.LeaveBalanceByExperience
	case FieldCampus:
		return &r.Campus
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (r Record) Get(f Field) string {
	if p := r.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns v to f. It reports false for an unknown field.
func (r *Record) Set(f Field, v string) bool {
	p := r.ref(f)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// WithReference returns a copy of r carrying the given campus reference data.
func (r Record) WithReference(branches []Branch, roles []Role) Record {
	r.Branches = branches
	r.Roles = roles
	return r
}

// BulkResult is the backend's verdict on one submitted record.
type BulkResult struct {
	Row        int    `json:"row"`
	EmployeeID string `json:"employeeId"`
	Email      string `json:"email"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

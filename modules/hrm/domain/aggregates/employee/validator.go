package employee

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/campus-hr/hrdesk/pkg/constants"
)

// ValidationErrors maps a field name to a human readable message. Empty means valid.
type ValidationErrors map[string]string

// ValidateOptions carries context the record itself cannot know.
type ValidateOptions struct {
	// OperatorCampus is the campus of the operator running the import. Empty skips the match check.
	OperatorCampus string
}

var (
	personNameRe   = regexp.MustCompile(`^[A-Za-z\s.]*$`)
	employeeCodeRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	phoneRe        = regexp.MustCompile(`^[0-9]{10}$`)
	emailRe        = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}$`)
)

const (
	minEmailLocal   = 5
	maxLeaveBalance = 30
)

// shape holds the context-free rules. Field names come from the json tags.
type shape struct {
	Name         string `json:"name" validate:"required,min=2,max=100,personname"`
	Email        string `json:"email" validate:"omitempty,max=100,emaillocal,emailformat,nodoubles"`
	EmployeeID   string `json:"employeeId" validate:"required,employeecode,min=3,max=20"`
	PhoneNumber  string `json:"phoneNumber" validate:"required,phone10"`
	Designation  string `json:"designation" validate:"max=50"`
	LeaveBalance string `json:"leaveBalanceByExperience" validate:"omitempty,leavebalance"`
	Campus       string `json:"campus" validate:"required"`
	BranchCode   string `json:"branchCode" validate:"required"`
}

func regexRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

var registerOnce sync.Once

func registerRules() {
	registerOnce.Do(func() {
		v := constants.Validate
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		rules := map[string]validator.Func{
			"personname":   regexRule(personNameRe),
			"employeecode": regexRule(employeeCodeRe),
			"phone10":      regexRule(phoneRe),
			"emailformat":  regexRule(emailRe),
			"emaillocal": func(fl validator.FieldLevel) bool {
				at := strings.Index(fl.Field().String(), "@")
				return at >= minEmailLocal
			},
			"nodoubles": func(fl validator.FieldLevel) bool {
				s := fl.Field().String()
				return !strings.Contains(s, "..") && !strings.Contains(s, "--")
			},
			"leavebalance": func(fl validator.FieldLevel) bool {
				n, err := strconv.ParseFloat(fl.Field().String(), 64)
				return err == nil && n >= 0 && n <= maxLeaveBalance
			},
		}
		for tag, fn := range rules {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
	})
}

var messages = map[string]string{
	"name.required":   "Name is required",
	"name.min":        "Name must be at least 2 characters",
	"name.max":        "Name must be at most 100 characters",
	"name.personname": "Name can only contain letters, spaces and dots",

	"email.max":         "Email must be at most 100 characters",
	"email.emaillocal":  "Email must have at least 5 characters before @",
	"email.emailformat": "Invalid email format",
	"email.nodoubles":   "Email cannot contain consecutive dots or hyphens",

	"employeeId.required":     "Employee ID is required",
	"employeeId.employeecode": "Employee ID can only contain letters, numbers and hyphens",
	"employeeId.min":          "Employee ID must be between 3 and 20 characters",
	"employeeId.max":          "Employee ID must be between 3 and 20 characters",

	"phoneNumber.required": "Phone number is required",
	"phoneNumber.phone10":  "Phone number must be exactly 10 digits",

	"designation.max": "Designation must be at most 50 characters",

	"leaveBalanceByExperience.leavebalance": "Leave balance must be a number between 0 and 30",

	"campus.required":     "Campus is required",
	"branchCode.required": "Branch is required",
}

func message(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	return fmt.Sprintf("Invalid %s", field)
}

func trimmed(rec Record) Record {
	for f := range EditableFields {
		rec.Set(f, strings.TrimSpace(rec.Get(f)))
	}
	return rec
}

// Validate checks every rule on a trimmed copy of rec and returns all failures at once.
func Validate(rec Record, opts ValidateOptions) ValidationErrors {
	registerRules()
	rec = trimmed(rec)
	errs := ValidationErrors{}

	s := shape{
		Name:         rec.Name,
		Email:        rec.Email,
		EmployeeID:   rec.EmployeeID,
		PhoneNumber:  rec.PhoneNumber,
		Designation:  rec.Designation,
		LeaveBalance: rec.LeaveBalanceByExperience,
		Campus:       rec.Campus,
		BranchCode:   rec.BranchCode,
	}
	if err := constants.Validate.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs[fe.Field()] = message(fe.Field(), fe.Tag())
			}
		}
	}

	campus := strings.TrimSpace(opts.OperatorCampus)
	if _, failed := errs[string(FieldCampus)]; !failed && campus != "" && !strings.EqualFold(rec.Campus, campus) {
		errs[string(FieldCampus)] = fmt.Sprintf("Campus must be %s", campus)
	}

	if _, failed := errs[string(FieldBranchCode)]; !failed && !hasBranch(rec.Branches, rec.BranchCode) {
		errs[string(FieldBranchCode)] = "Invalid branch for the selected campus"
	}

	if rec.Role != "" {
		role, ok := ResolveRole(rec.Roles, rec.Role)
		switch {
		case !ok:
			errs[string(FieldRole)] = "Invalid role for the selected campus"
		case role.Value == RoleOther && rec.CustomRole == "":
			errs[string(FieldCustomRole)] = "Custom role is required"
		}
	}
	return errs
}

func hasBranch(branches []Branch, code string) bool {
	for _, b := range branches {
		if b.Code == code || b.Name == code {
			return true
		}
	}
	return false
}

func normalizeRole(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
}

// ResolveRole finds the role whose value or label matches s ignoring case, underscores and spaces.
func ResolveRole(roles []Role, s string) (Role, bool) {
	want := normalizeRole(s)
	if want == "" {
		return Role{}, false
	}
	for _, r := range roles {
		if normalizeRole(r.Value) == want || normalizeRole(r.Label) == want {
			return r, true
		}
	}
	return Role{}, false
}

func IsRowValid(errs ValidationErrors) bool {
	return len(errs) == 0
}

// IsBulkValid is true for a non-empty batch where every row is valid.
func IsBulkValid(errs []ValidationErrors) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !IsRowValid(e) {
			return false
		}
	}
	return true
}

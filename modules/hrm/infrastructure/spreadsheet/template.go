package spreadsheet

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

const templateSheet = "Employees"

var templateExample = map[employee.Field]string{
	employee.FieldName:         "John Doe",
	employee.FieldEmail:        "john.doe@college.edu",
	employee.FieldEmployeeID:   "EMP-001",
	employee.FieldPhoneNumber:  "9876543210",
	employee.FieldBranchCode:   "CSE",
	employee.FieldRole:         "faculty",
	employee.FieldStatus:       employee.DefaultStatus,
	employee.FieldDesignation:  "Assistant Professor",
	employee.FieldLeaveBalance: employee.DefaultLeaveBalance,
}

// WriteTemplate writes an .xlsx whose header row holds the canonical field labels, followed by one
// example row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	header := make([]interface{}, 0, len(employee.CanonicalFields))
	example := make([]interface{}, 0, len(employee.CanonicalFields))
	for _, field := range employee.CanonicalFields {
		header = append(header, field.Label)
		example = append(example, templateExample[field.Field])
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header row")
	}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return errors.Wrap(err, "write example row")
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create header style")
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return errors.Wrap(err, "header range")
	}
	if err := f.SetCellStyle(templateSheet, "A1", last, style); err != nil {
		return errors.Wrap(err, "style header row")
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write template")
	}
	return nil
}

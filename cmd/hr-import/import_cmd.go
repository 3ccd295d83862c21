package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/hrapi"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/spreadsheet"
	"github.com/campus-hr/hrdesk/modules/hrm/services"
	"github.com/campus-hr/hrdesk/pkg/configuration"
	"github.com/campus-hr/hrdesk/pkg/logging"
)

type importOptions struct {
	file    string
	campus  string
	baseURL string
	token   string
	timeout time.Duration
	apply   bool
	verbose bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a spreadsheet and optionally submit the valid rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Spreadsheet to import: .xlsx, .xls or .csv (required)")
	cmd.Flags().StringVar(&opts.campus, "campus", "", "Operator campus (default: OPERATOR_CAMPUS)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "HR API base URL (default: HR_API_BASE_URL)")
	cmd.Flags().StringVar(&opts.token, "token", "", "HR API bearer token (default: HR_API_TOKEN)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HR API request timeout")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Submit valid rows (default is dry-run)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Log progress to stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// fillFromEnv takes unset connection settings from the environment configuration.
func (o *importOptions) fillFromEnv() {
	if o.baseURL != "" && o.token != "" && o.campus != "" {
		return
	}
	conf := configuration.Use()
	if o.baseURL == "" {
		o.baseURL = conf.HRAPI.BaseURL
	}
	if o.token == "" {
		o.token = conf.HRAPI.Token
	}
	if o.campus == "" {
		o.campus = conf.Import.OperatorCampus
	}
}

type mappingLine struct {
	Type     string           `json:"type"`
	Field    employee.Field   `json:"field"`
	Status   string           `json:"status"`
	Header   string           `json:"header,omitempty"`
	Required bool             `json:"required"`
	Suggest  []employee.Field `json:"suggestions,omitempty"`
}

type rowLine struct {
	Type       string                    `json:"type"`
	Row        int                       `json:"row"`
	EmployeeID string                    `json:"employee_id"`
	Valid      bool                      `json:"valid"`
	Errors     employee.ValidationErrors `json:"errors,omitempty"`
}

type resultLine struct {
	Type       string `json:"type"`
	Row        int    `json:"row"`
	EmployeeID string `json:"employee_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type importSummary struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	File      string `json:"file"`
	Campus    string `json:"campus"`
	Apply     bool   `json:"apply"`
	Total     int    `json:"total"`
	Valid     int    `json:"valid"`
	Invalid   int    `json:"invalid"`
	Sent      int    `json:"sent"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
}

func runImport(ctx context.Context, opts importOptions, stdout, stderr io.Writer) error {
	if strings.TrimSpace(opts.file) == "" {
		return withCode(exitUsage, fmt.Errorf("--file is required"))
	}
	opts.fillFromEnv()

	logger := logging.ConsoleLogger(logrus.WarnLevel)
	logger.SetOutput(stderr)
	if opts.verbose {
		logger.SetLevel(logrus.InfoLevel)
	}

	client, err := hrapi.NewClient(opts.baseURL, hrapi.NewSession(opts.token), hrapi.WithTimeout(opts.timeout))
	if err != nil {
		return withCode(exitUsage, err)
	}
	svc := services.NewBulkImportService(
		spreadsheet.NewDecoder(),
		client,
		client,
		services.NewSessionStore(0),
		nil,
		logger,
	)

	f, err := os.Open(opts.file)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("open %s: %w", opts.file, err))
	}
	defer func() { _ = f.Close() }()

	sess, err := svc.Start(ctx, opts.campus, opts.file, f)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrParse):
		return withCode(exitValidation, err)
	default:
		return withCode(exitAPI, err)
	}

	view := sess.View()
	if err := writeMapping(stdout, view.Mapping); err != nil {
		return err
	}
	for _, row := range view.Rows {
		if err := writeJSONLine(stdout, rowLine{
			Type:       "row",
			Row:        row.ID,
			EmployeeID: row.Record.EmployeeID,
			Valid:      row.Valid,
			Errors:     row.Errors,
		}); err != nil {
			return err
		}
	}

	summary := importSummary{
		Type:    "summary",
		Status:  "checked",
		File:    opts.file,
		Campus:  opts.campus,
		Apply:   opts.apply,
		Total:   view.Summary.Total,
		Valid:   view.Summary.Valid,
		Invalid: view.Summary.Invalid,
	}
	if !opts.apply {
		if err := writeJSONLine(stdout, summary); err != nil {
			return err
		}
		if summary.Invalid > 0 {
			return withCode(exitValidation, fmt.Errorf("%d of %d rows are invalid", summary.Invalid, summary.Total))
		}
		return nil
	}

	out, err := svc.Submit(ctx, sess.ID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoValidRows):
		return withCode(exitValidation, err)
	case errors.Is(err, hrapi.ErrUnauthorized):
		return withCode(exitAPI, fmt.Errorf("%w: check --token", err))
	default:
		return withCode(exitAPI, err)
	}

	for _, r := range out.Results {
		if err := writeJSONLine(stdout, resultLine{
			Type:       "result",
			Row:        r.Row,
			EmployeeID: r.EmployeeID,
			Success:    r.Success,
			Error:      r.Error,
		}); err != nil {
			return err
		}
	}
	summary.Status = "submitted"
	summary.Sent = out.Sent
	summary.Succeeded = out.Succeeded
	summary.Failed = out.Failed
	summary.Message = out.Message
	if err := writeJSONLine(stdout, summary); err != nil {
		return err
	}
	if out.Failed > 0 {
		return withCode(exitPartial, fmt.Errorf("%d of %d submitted rows were rejected", out.Failed, out.Sent))
	}
	return nil
}

func writeMapping(w io.Writer, report employee.MappingReport) error {
	for _, m := range report.Fields {
		if err := writeJSONLine(w, mappingLine{
			Type:     "mapping",
			Field:    m.Field,
			Status:   m.Status,
			Header:   m.Header,
			Required: m.Required,
		}); err != nil {
			return err
		}
	}
	for _, u := range report.Unmapped {
		if err := writeJSONLine(w, mappingLine{
			Type:    "unmapped",
			Header:  u.Header,
			Status:  employee.StatusNotFound,
			Suggest: u.Suggestions,
		}); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/CHAISAHR/saleaveapp-sub000/app"
	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/report"
	"github.com/shopspring/decimal"
)

const usage = `usage: leavectl <command> [flags]

commands:
  balance, termination, workdays, register, adjust,
  request (submit|approve|reject|cancel), rollover, report, import-holidays
`

const defaultActor = "leavectl"

var errUsage = errors.New("invalid usage")

func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "balance":
		return cmdBalance(ctx, a, rest, out)
	case "termination":
		return cmdTermination(ctx, a, rest, out)
	case "workdays":
		return cmdWorkdays(ctx, a, rest, out)
	case "register":
		return cmdRegister(ctx, a, rest, out)
	case "adjust":
		return cmdAdjust(ctx, a, rest, out)
	case "request":
		return cmdRequest(ctx, a, rest, out)
	case "rollover":
		return cmdRollover(ctx, a, rest, out)
	case "report":
		return cmdReport(ctx, a, rest, out)
	case "import-holidays":
		return cmdImportHolidays(ctx, a, rest, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// =============================================================================
// BALANCES
// =============================================================================

func cmdBalance(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("balance")
	email := fs.String("email", "", "employee email")
	year := fs.Int("year", a.Clock.Today().Year(), "balance year")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", errUsage)
	}

	r, balances, err := a.Balances.Balances(ctx, *email, *year)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s)\t%d\t%s\n", r.Name, r.Email, r.Year, r.Status(a.Clock.Today()))
	fmt.Fprintf(tw, "brought forward\t%s\n", r.BroughtForward)
	fmt.Fprintf(tw, "accrued\t%s\n", r.AccumulatedLeave)
	types := make([]leave.LeaveType, 0, len(balances))
	for t := range balances {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		b := balances[t]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t, b.Display().Value.StringFixed(generic.DisplayPlaces), b.Unit)
	}
	return tw.Flush()
}

func cmdTermination(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("termination")
	email := fs.String("email", "", "employee email")
	year := fs.Int("year", a.Clock.Today().Year(), "balance year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.Balances.Termination(ctx, *email, *year)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "status=%s base=%s top_up=%s balance=%s\n",
		res.Status, res.Base.StringFixed(3), res.TopUp.StringFixed(3), res.Balance.Value.StringFixed(3))
	return nil
}

func cmdWorkdays(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("workdays")
	start := fs.String("start", "", "first day (YYYY-MM-DD)")
	end := fs.String("end", "", "last day (YYYY-MM-DD)")
	typ := fs.String("type", "annual", "leave type")
	halfDay := fs.Bool("half-day", false, "half-day request")
	if err := fs.Parse(args); err != nil {
		return err
	}

	from, err := generic.ParseDate(*start)
	if err != nil {
		return err
	}
	to, err := generic.ParseDate(*end)
	if err != nil {
		return err
	}
	t, err := leave.ParseLeaveType(*typ)
	if err != nil {
		return err
	}
	period, err := generic.NewPeriod(from, to)
	if err != nil {
		return err
	}
	cal, err := leave.ResolverFor(ctx, a.Store, period)
	if err != nil {
		return err
	}

	units, err := leave.RequestUnits(t, from, to, cal, *halfDay)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", units.String(), t.Unit())
	return nil
}

// =============================================================================
// ADMIN
// =============================================================================

func cmdRegister(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("register")
	email := fs.String("email", "", "employee email")
	name := fs.String("name", "", "employee name")
	department := fs.String("department", "", "department")
	manager := fs.String("manager", "", "manager email")
	year := fs.Int("year", a.Clock.Today().Year(), "balance year")
	start := fs.String("start", "", "employment start date")
	termination := fs.String("termination", "", "contract termination date")
	bf := fs.String("bf", "0", "brought forward days")
	actor := fs.String("actor", defaultActor, "audit actor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := leave.BalanceRecord{
		Email:        *email,
		Name:         *name,
		Department:   *department,
		ManagerEmail: *manager,
		Year:         *year,
	}
	var err error
	if r.BroughtForward, err = decimal.NewFromString(*bf); err != nil {
		return generic.NewValidationError("bf", err.Error())
	}
	if r.StartDate, err = optionalDate(*start); err != nil {
		return err
	}
	if r.TerminationDate, err = optionalDate(*termination); err != nil {
		return err
	}

	if err := a.Balances.Register(ctx, r, *actor); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s\n", r.Key())
	return nil
}

func cmdAdjust(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("adjust")
	email := fs.String("email", "", "employee email")
	year := fs.Int("year", a.Clock.Today().Year(), "balance year")
	field := fs.String("field", "", "field to set")
	value := fs.String("value", "", "new value")
	actor := fs.String("actor", defaultActor, "audit actor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := decimal.NewFromString(*value)
	if err != nil {
		return generic.NewValidationError("value", err.Error())
	}
	r, err := a.Balances.Adjust(ctx, *email, *year, *field, v, *actor)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s=%s\n", r.Key(), *field, v)
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func cmdRequest(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: request needs submit, approve, reject or cancel", errUsage)
	}
	action, rest := args[0], args[1:]

	if action == "submit" {
		fs := newFlags("request submit")
		in := leave.SubmitInput{}
		fs.StringVar(&in.RequesterEmail, "email", "", "requester email")
		fs.StringVar(&in.ApproverEmail, "approver", "", "approver email")
		fs.StringVar(&in.LeaveType, "type", "annual", "leave type")
		fs.StringVar(&in.StartDate, "start", "", "first day")
		fs.StringVar(&in.EndDate, "end", "", "last day")
		fs.StringVar(&in.Title, "title", "Leave", "title")
		fs.StringVar(&in.Detail, "detail", "", "detail")
		fs.BoolVar(&in.IsHalfDay, "half-day", false, "half-day request")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		req, err := a.Requests.Submit(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s %s %s\n", req.ID, req.Status, req.Units, req.Type.Unit())
		return nil
	}

	fs := newFlags("request " + action)
	id := fs.String("id", "", "request id")
	actor := fs.String("actor", defaultActor, "acting user")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	var (
		req *leave.LeaveRequest
		err error
	)
	switch action {
	case "approve":
		req, err = a.Requests.Approve(ctx, *id, *actor)
	case "reject":
		req, err = a.Requests.Reject(ctx, *id, *actor)
	case "cancel":
		req, err = a.Requests.Cancel(ctx, *id, *actor)
	default:
		return fmt.Errorf("%w: unknown request action %q", errUsage, action)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s balance_updated=%t\n", req.ID, req.Status, req.BalanceUpdated)
	return nil
}

// =============================================================================
// YEAR END, REPORTS, HOLIDAYS
// =============================================================================

func cmdRollover(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("rollover")
	from := fs.Int("from", a.Clock.Today().Year()-1, "source year")
	to := fs.Int("to", a.Clock.Today().Year(), "target year")
	actor := fs.String("actor", defaultActor, "audit actor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	summary, err := a.Rollover.Rollover(ctx, *from, *to, *actor)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "rolled %d employees from %d to %d\n", summary.EmployeesProcessed, summary.FromYear, summary.ToYear)
	return nil
}

func cmdReport(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("report")
	year := fs.Int("year", a.Clock.Today().Year(), "balance year")
	dir := fs.String("out", a.Config.ReportDir, "output directory")
	mail := fs.Bool("mail", false, "mail the report to LEAVE_HR_EMAIL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.Store.ListBalances(ctx, *year)
	if err != nil {
		return err
	}
	path, err := report.SaveTo(*dir, *year, records, a.Clock.Today())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d employees)\n", path, len(records))

	if *mail {
		if a.Config.Mail.HREmail == "" {
			return fmt.Errorf("%w: -mail needs LEAVE_HR_EMAIL", errUsage)
		}
		return a.Notifier.Notify(ctx, leave.Notification{
			To:          []string{a.Config.Mail.HREmail},
			Subject:     fmt.Sprintf("Leave balances %d", *year),
			Body:        fmt.Sprintf("Balance report for %d employees as of %s.", len(records), a.Clock.Today()),
			Attachments: []string{path},
		})
	}
	return nil
}

func cmdImportHolidays(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("import-holidays")
	file := fs.String("file", "", "YAML calendar")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: -file is required", errUsage)
	}

	n, err := app.ImportHolidays(ctx, a.Store, *file)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d holidays\n", n)
	return nil
}

func optionalDate(s string) (*generic.TimePoint, error) {
	if s == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/tvuschedule/plugin/academic/dateref"
	"github.com/hrygo/tvuschedule/plugin/academic/intent"
	"github.com/hrygo/tvuschedule/plugin/academic/semester"
	"github.com/hrygo/tvuschedule/plugin/gcal"
	"github.com/hrygo/tvuschedule/server"
	"github.com/hrygo/tvuschedule/server/runner/calsync"
	"github.com/hrygo/tvuschedule/server/service/timetable"
	"github.com/hrygo/tvuschedule/server/timezone"
	"github.com/hrygo/tvuschedule/store"
)

// now is the wall clock; commands read it once and pass it down.
var now = time.Now

type resolveOutput struct {
	Text      string                `json:"text" yaml:"text"`
	Intent    intent.Result         `json:"intent" yaml:"intent"`
	Reference dateref.DateReference `json:"reference" yaml:"reference"`
	WeekShift int                   `json:"week_shift" yaml:"week_shift"`
	Date      string                `json:"date" yaml:"date"`
	Semester  semester.SemesterWeek `json:"semester" yaml:"semester"`
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve TEXT",
		Short: "Resolve the day and semester week a question refers to, without contacting the portal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			current := now().In(p.Location())

			cls := intent.NewClassifier().Classify(text)
			if cls.Intent == intent.Email {
				return fmt.Errorf("%q looks like an email request, not a timetable question", text)
			}
			ref := dateref.Resolve(text, current)
			shift := dateref.ParseWeekShift(text)
			date := ref.DateFor(current, shift)
			sw, err := semester.ComputeWeek(date, p.SemesterID)
			if err != nil {
				return err
			}
			if week, ok := dateref.ParseExplicitWeek(text); ok {
				sw.WeekNumber = week
				if !ref.HasDate() {
					date = sw.SemesterID.DayInWeek(week, ref.Weekday, date.Location())
				}
			}

			out := &resolveOutput{
				Text:      text,
				Intent:    cls,
				Reference: ref,
				WeekShift: shift,
				Date:      timezone.FormatDate(date),
				Semester:  sw,
			}
			summary := fmt.Sprintf("%s → %s, học kỳ %s, tuần %d", ref.Label, out.Date, sw.SemesterID, sw.WeekNumber)
			return printResult(cmd.OutOrStdout(), out, summary)
		},
	}
}

func newWeekCmd() *cobra.Command {
	var (
		date  string
		fetch bool
	)
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the semester week of a date, or its classes with --fetch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			day := now().In(p.Location())
			if date != "" {
				if day, err = timezone.ParseDate(date, p.Location()); err != nil {
					return errors.Wrapf(err, "invalid --date %q, expected dd/mm/yyyy", date)
				}
			}

			if !fetch {
				sw, err := semester.ComputeWeek(day, p.SemesterID)
				if err != nil {
					return err
				}
				text := fmt.Sprintf("%s: học kỳ %s, tuần %d", timezone.FormatDate(day), sw.SemesterID, sw.WeekNumber)
				return printResult(cmd.OutOrStdout(), sw, text)
			}

			svc := timetable.NewService(server.NewStore(p), p.Location())
			result, err := svc.Week(cmd.Context(), day, p.SemesterID)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, result.Message())
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date as dd/mm/yyyy (default today)")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch the week's classes from the portal")
	return cmd
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query TEXT",
		Short: `Answer a timetable question such as "thứ 5 tuần sau có lớp gì"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			svc := timetable.NewService(server.NewStore(p), p.Location())
			result, err := svc.Query(cmd.Context(), &timetable.QueryRequest{
				Text:       strings.Join(args, " "),
				SemesterID: p.SemesterID,
				Now:        now(),
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, result.Message())
		},
	}
}

func newSemestersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "semesters",
		Short: "List the semesters the portal has timetables for",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			list, err := server.NewStore(p).ListSemesters(cmd.Context())
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, s := range list {
				fmt.Fprintf(&b, "%s\t%s\n", s.ID, s.Name)
			}
			return printResult(cmd.OutOrStdout(), list, strings.TrimRight(b.String(), "\n"))
		},
	}
}

type weeksOutput struct {
	Weeks   []*store.WeekInfo     `json:"weeks" yaml:"weeks"`
	Current semester.WeekLocation `json:"current" yaml:"current"`
}

func newWeeksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weeks",
		Short: "List the published weeks of a semester and locate today among them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			current := now().In(p.Location())
			id := p.SemesterID
			if id == "" {
				id = semester.DetectID(current).String()
			}
			weeks, err := server.NewStore(p).ListWeeks(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := &weeksOutput{Weeks: weeks, Current: semester.LocateWeek(weeks, current)}

			var b strings.Builder
			for _, w := range weeks {
				fmt.Fprintf(&b, "%s (%d lớp)\n", w.Label, w.ClassCount)
			}
			fmt.Fprintf(&b, "Hôm nay: tuần %d (%s)", out.Current.Week, out.Current.Status)
			return printResult(cmd.OutOrStdout(), out, b.String())
		},
	}
}

func newSyncCmd() *cobra.Command {
	var (
		dryRun  bool
		icsPath string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create calendar events for this week's classes",
		Long: "Create calendar events for this week's classes that are not in the calendar yet.\n" +
			"With --cron the sync keeps running on that schedule until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			st := server.NewStore(p)
			svc := timetable.NewService(st, p.Location())
			current := now().In(p.Location())

			if dryRun || icsPath != "" {
				plan, err := planForExport(cmd.Context(), st, svc, current, p.SemesterID)
				if err != nil {
					return err
				}
				if icsPath != "" {
					if err := writeICS(icsPath, plan, current); err != nil {
						return err
					}
				}
				return printResult(cmd.OutOrStdout(), plan, planSummary(plan))
			}

			runner := calsync.NewRunner(svc, st, p.SemesterID, p.Location())
			if !cmd.Flags().Changed("cron") {
				report, err := runner.RunOnce(cmd.Context(), current)
				if err != nil {
					return err
				}
				text := fmt.Sprintf("Đã tạo %d sự kiện, bỏ qua %d, lỗi %d.", report.Created, report.Skipped, report.Failed)
				return printResult(cmd.OutOrStdout(), report, text)
			}

			if !st.HasCalendar() {
				return errors.New("calendar sync needs --calendar-token")
			}
			if err := runner.Start(p.SyncCron); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			runner.Stop()
			return nil
		},
	}
	cmd.Flags().String("cron", "0 6 * * *", "keep running and sync on this cron schedule")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without creating events")
	cmd.Flags().StringVar(&icsPath, "ics", "", "write the events to create as an iCalendar file")
	if err := viper.BindPFlag("cron", cmd.Flags().Lookup("cron")); err != nil {
		panic(err)
	}
	return cmd
}

// planForExport plans against the calendar when one is configured, and
// against an empty calendar otherwise so the ICS export works offline from
// any calendar account.
func planForExport(ctx context.Context, st *store.Store, svc timetable.Service, current time.Time, semesterID string) (*timetable.SyncPlan, error) {
	if st.HasCalendar() {
		return svc.PlanWeekSync(ctx, current, semesterID)
	}
	sw, err := semester.ComputeWeek(current, semesterID)
	if err != nil {
		return nil, err
	}
	entries, err := st.FetchWeekSchedule(ctx, sw.SemesterID.String(), sw.WeekNumber)
	if err != nil {
		return nil, err
	}
	start, end := timetable.DefaultSyncWindow(current)
	return timetable.PlanSync(entries, nil, start, end, current), nil
}

func writeICS(path string, plan *timetable.SyncPlan, stamp time.Time) error {
	events := make([]*store.CalendarEvent, 0, len(plan.Create))
	for _, planned := range plan.Create {
		events = append(events, planned.CalendarEvent())
	}
	doc := gcal.ExportICS(events, "Lịch học TVU", stamp)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	slog.Info("wrote iCalendar file", "path", path, "events", len(events))
	return nil
}

func planSummary(plan *timetable.SyncPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sẽ tạo %d sự kiện, bỏ qua %d đã có.", len(plan.Create), len(plan.Skip))
	for _, planned := range plan.Create {
		fmt.Fprintf(&b, "\n+ %s %s-%s | %s", timezone.FormatDate(planned.Start), planned.Start.Format("15:04"), planned.End.Format("15:04"), planned.Entry.Subject)
	}
	for _, planned := range plan.Skip {
		fmt.Fprintf(&b, "\n= %s %s | %s", timezone.FormatDate(planned.Start), planned.Start.Format("15:04"), planned.Entry.Subject)
	}
	return b.String()
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timetable HTTP API and run the scheduled calendar sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			if p.PortalToken == "" {
				slog.Warn("no portal token configured; timetable requests will be rejected by the portal")
			}
			s := server.NewServer(p, server.NewStore(p))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- s.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.Shutdown(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().String("addr", "", "address of server")
	cmd.Flags().Int("port", 8081, "port of server")
	for _, name := range []string{"addr", "port"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

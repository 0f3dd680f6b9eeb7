package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/campusflow/internal/adapters/storage/sqlite"
	"github.com/hylla/campusflow/internal/app"
	"github.com/hylla/campusflow/internal/config"
	"github.com/hylla/campusflow/internal/domain"
	"github.com/hylla/campusflow/internal/platform"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

var (
	flagConfig   string
	flagDB       string
	flagActor    string
	flagPlatform string
	flagDev      bool
)

var rootCmd = &cobra.Command{
	Use:     "campusflow",
	Short:   "Workflow and approval engine for university project collaboration",
	Long:    `campusflow drives task, project-approval, and leave-request workflows: role-gated state machines, task dependencies, work timers, and an audit trail, backed by sqlite.`,
	Version: version,
}

// runtimeEnv bundles what every command handler needs.
type runtimeEnv struct {
	cfg    config.Config
	repo   *sqlite.Repository
	svc    *app.Service
	actor  app.Actor
	logger *charmLog.Logger
}

// withEnv opens the database, builds the service, runs fn, and closes up.
func withEnv(fn func(cmd *cobra.Command, env *runtimeEnv, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		paths, err := platform.DefaultPathsWithOptions(platform.Options{
			AppName: "campusflow",
			DevMode: flagDev,
		})
		if err != nil {
			return err
		}
		configPath := flagConfig
		if configPath == "" {
			if envPath := strings.TrimSpace(os.Getenv("CAMPUSFLOW_CONFIG")); envPath != "" {
				configPath = envPath
			} else {
				configPath = paths.ConfigPath
			}
		}
		dbPath := flagDB
		if dbPath == "" {
			if envPath := strings.TrimSpace(os.Getenv("CAMPUSFLOW_DB_PATH")); envPath != "" {
				dbPath = envPath
			} else {
				dbPath = paths.DBPath
			}
		}

		cfg, err := config.Load(configPath, config.Default(dbPath))
		if err != nil {
			return fmt.Errorf("load config %q: %w", configPath, err)
		}
		if flagDB != "" {
			cfg.Database.Path = flagDB
		}

		logger := charmLog.NewWithOptions(cmd.ErrOrStderr(), charmLog.Options{
			ReportTimestamp: false,
		})
		if level, levelErr := charmLog.ParseLevel(cfg.Logging.Level); levelErr == nil {
			logger.SetLevel(level)
		}

		repo, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer func() {
			_ = repo.Close()
		}()

		env := &runtimeEnv{
			cfg:    cfg,
			repo:   repo,
			svc:    app.NewService(repo, repo, uuid.NewString, time.Now, logger),
			actor:  resolveActor(),
			logger: logger,
		}
		return fn(cmd, env, args)
	}
}

// resolveActor builds the acting identity from flags with env fallbacks.
func resolveActor() app.Actor {
	actorID := strings.TrimSpace(flagActor)
	if actorID == "" {
		actorID = strings.TrimSpace(os.Getenv("CAMPUSFLOW_ACTOR"))
	}
	platformRole := strings.TrimSpace(flagPlatform)
	if platformRole == "" {
		platformRole = strings.TrimSpace(os.Getenv("CAMPUSFLOW_PLATFORM_ROLE"))
	}
	return app.Actor{
		ID:       actorID,
		Platform: domain.NormalizePlatformRole(domain.PlatformRole(platformRole)),
	}
}

// taskEventAlias maps CLI verbs onto task machine events.
func taskEventAlias(verb string) string {
	if verb == "review" {
		return "submit_for_review"
	}
	return verb
}

// parseDate accepts YYYY-MM-DD, returning midnight UTC.
func parseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return parsed.UTC(), nil
}

func printTransition(cmd *cobra.Command, result app.TransitionResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s -> %s\n", result.Ref.Kind, result.Ref.ID, result.From, result.To)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage project tasks",
}

var (
	taskAddID       string
	taskAddPriority string
	taskAddEstimate float64
	taskAddDue      string
	taskAddAssignee []string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <project-id> <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		id := taskAddID
		if strings.TrimSpace(id) == "" {
			id = uuid.NewString()
		}
		estimate := taskAddEstimate
		if estimate == 0 {
			estimate = env.cfg.Workflow.DefaultEstimatedEffort
		}
		var dueAt *time.Time
		if taskAddDue != "" {
			due, err := parseDate(taskAddDue)
			if err != nil {
				return err
			}
			dueAt = &due
		}
		task, err := domain.NewTask(domain.TaskInput{
			ID:              id,
			ProjectID:       args[0],
			Title:           args[1],
			Priority:        domain.Priority(taskAddPriority),
			EstimatedEffort: estimate,
			DueAt:           dueAt,
			Assignees:       taskAddAssignee,
		}, time.Now())
		if err != nil {
			return err
		}
		if err := env.repo.CreateTask(cmd.Context(), task); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created task %s\n", task.ID)
		return nil
	}),
}

var taskListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's tasks",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		tasks, err := env.repo.ListTasks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, task := range tasks {
			fmt.Fprintf(out, "%s\t%s\t%s\t%.1fh/%.1fh\t%s\n",
				task.ID, task.Status, task.Priority, task.LoggedEffort, task.EstimatedEffort, task.Title)
		}
		return nil
	}),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		task, err := env.repo.GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id: %s\nproject: %s\ntitle: %s\nstatus: %s\npriority: %s\n",
			task.ID, task.ProjectID, task.Title, task.Status, task.Priority)
		fmt.Fprintf(out, "effort: %.1fh logged / %.1fh estimated (locked: %t)\n",
			task.LoggedEffort, task.EstimatedEffort, task.EffortLocked)
		if len(task.Assignees) > 0 {
			fmt.Fprintf(out, "assignees: %s\n", strings.Join(task.Assignees, ", "))
		}
		for _, sub := range task.Subtasks {
			mark := " "
			if sub.Done {
				mark = "x"
			}
			fmt.Fprintf(out, "  [%s] %s\n", mark, sub.Title)
		}
		return nil
	}),
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task (fails while other tasks depend on it)",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		if err := env.svc.DeleteTask(cmd.Context(), env.actor, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted task %s\n", args[0])
		return nil
	}),
}

// taskTransitionCmd builds one subcommand per task machine verb.
func taskTransitionCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
			ref := domain.EntityRef{Kind: domain.EntityKindTask, ID: args[0]}
			result, err := env.svc.RequestTransition(cmd.Context(), env.actor, ref, taskEventAlias(verb), app.TransitionPayload{})
			if err != nil {
				return err
			}
			printTransition(cmd, result)
			return nil
		}),
	}
}

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Track time against tasks",
}

var timerStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start your work timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		event, err := env.svc.StartTimer(cmd.Context(), env.actor, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "timer %s started at %s\n", event.ID, event.StartedAt.Format(time.RFC3339))
		return nil
	}),
}

var timerStopCmd = &cobra.Command{
	Use:   "stop <task-id>",
	Short: "Stop your work timer and credit the time",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		minutes, err := env.svc.StopTimer(cmd.Context(), env.actor, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged %.1f minutes\n", minutes)
		return nil
	}),
}

var progressCmd = &cobra.Command{
	Use:   "progress <task-id>",
	Short: "Show logged time against the estimate",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		p, err := env.svc.ComputeProgress(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "logged: %.2fh\nestimated: %.2fh\n", p.LoggedHours, p.EstimatedHours)
		if p.PercentOver > 0 {
			fmt.Fprintf(out, "over estimate by %.0f%%\n", p.PercentOver)
		}
		return nil
	}),
}

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage task dependencies",
}

var depAddCmd = &cobra.Command{
	Use:   "add <task-id> <depends-on-id>",
	Short: "Make one task depend on another",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		if err := env.svc.AddDependency(cmd.Context(), env.actor, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now depends on %s\n", args[0], args[1])
		return nil
	}),
}

var depRemoveCmd = &cobra.Command{
	Use:   "rm <task-id> <depends-on-id>",
	Short: "Sever a dependency",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		if err := env.svc.RemoveDependency(cmd.Context(), env.actor, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s no longer depends on %s\n", args[0], args[1])
		return nil
	}),
}

var depListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "Show a task's prerequisites and dependents",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		dependsOn, dependents, err := env.svc.ListDependencies(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "depends on: %s\n", strings.Join(dependsOn, ", "))
		fmt.Fprintf(out, "dependents: %s\n", strings.Join(dependents, ", "))
		return nil
	}),
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Manage leave requests",
}

var (
	leaveType   string
	leaveFrom   string
	leaveTo     string
	leaveReason string
)

var leaveSubmitCmd = &cobra.Command{
	Use:   "submit <project-id>",
	Short: "Submit a leave request",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		start, err := parseDate(leaveFrom)
		if err != nil {
			return err
		}
		end, err := parseDate(leaveTo)
		if err != nil {
			return err
		}
		req, err := env.svc.SubmitLeave(cmd.Context(), env.actor, app.SubmitLeaveInput{
			ProjectID: args[0],
			Type:      domain.LeaveType(leaveType),
			StartDate: start,
			EndDate:   end,
			Reason:    leaveReason,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted leave request %s (%s)\n", req.ID, req.Status)
		return nil
	}),
}

// leaveTransitionCmd builds one subcommand per leave machine verb.
func leaveTransitionCmd(verb, short string) *cobra.Command {
	var reason string
	c := &cobra.Command{
		Use:   verb + " <request-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
			ref := domain.EntityRef{Kind: domain.EntityKindLeaveRequest, ID: args[0]}
			result, err := env.svc.RequestTransition(cmd.Context(), env.actor, ref, verb, app.TransitionPayload{Reason: reason})
			if err != nil {
				return err
			}
			printTransition(cmd, result)
			return nil
		}),
	}
	c.Flags().StringVar(&reason, "reason", "", "decision reason (required for reject)")
	return c
}

var approvalCmd = &cobra.Command{
	Use:   "approval",
	Short: "Manage project approvals",
}

var approvalInitCmd = &cobra.Command{
	Use:   "init <project-id>",
	Short: "Create the pending approval record for a project",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		approval, err := domain.NewProjectApproval(args[0], time.Now())
		if err != nil {
			return err
		}
		if err := env.repo.CreateProjectApproval(cmd.Context(), approval); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "approval for %s is %s\n", approval.ProjectID, approval.Status)
		return nil
	}),
}

// approvalTransitionCmd builds one subcommand per approval machine verb.
func approvalTransitionCmd(verb, event, short string) *cobra.Command {
	var (
		reason   string
		comments string
		publish  bool
	)
	c := &cobra.Command{
		Use:   verb + " <project-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
			ref := domain.EntityRef{Kind: domain.EntityKindProjectApproval, ID: args[0]}
			result, err := env.svc.RequestTransition(cmd.Context(), env.actor, ref, event, app.TransitionPayload{
				Reason:             reason,
				Comments:           comments,
				PublishImmediately: publish,
			})
			if err != nil {
				return err
			}
			printTransition(cmd, result)
			return nil
		}),
	}
	c.Flags().StringVar(&reason, "reason", "", "decision reason (required for reject)")
	c.Flags().StringVar(&comments, "comments", "", "reviewer comments (required for request-changes)")
	c.Flags().BoolVar(&publish, "publish", true, "publish the project on approval")
	return c
}

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage project membership",
}

var memberSetCmd = &cobra.Command{
	Use:   "set <project-id> <user-id> <role>",
	Short: "Set a member's role in a project",
	Args:  cobra.ExactArgs(3),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		role := domain.NormalizeMembershipRole(domain.MembershipRole(args[2]))
		if !domain.IsValidMembershipRole(role) {
			return fmt.Errorf("unknown role %q", args[2])
		}
		if err := env.repo.UpsertMembership(cmd.Context(), args[0], args[1], role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s in %s\n", args[1], role, args[0])
		return nil
	}),
}

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit <entity-kind> <entity-id>",
	Short: "Show the audit trail for a task, project_approval, or leave_request",
	Args:  cobra.ExactArgs(2),
	RunE: withEnv(func(cmd *cobra.Command, env *runtimeEnv, args []string) error {
		kind := domain.EntityKind(strings.TrimSpace(strings.ToLower(args[0])))
		switch kind {
		case domain.EntityKindTask, domain.EntityKindProjectApproval, domain.EntityKindLeaveRequest:
		default:
			return fmt.Errorf("unknown entity kind %q", args[0])
		}
		limit := auditLimit
		if limit == 0 {
			limit = env.cfg.Audit.Limit
		}
		events, err := env.svc.ListAuditTrail(cmd.Context(), domain.EntityRef{Kind: kind, ID: args[1]}, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, event := range events {
			line := fmt.Sprintf("%s\t%s\t%s", event.OccurredAt.Format(time.RFC3339), event.ActorID, event.Action)
			if event.FromStatus != "" || event.ToStatus != "" {
				line += fmt.Sprintf("\t%s -> %s", event.FromStatus, event.ToStatus)
			}
			if event.Note != "" {
				line += "\t" + event.Note
			}
			fmt.Fprintln(out, line)
		}
		return nil
	}),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config TOML")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to sqlite database")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "acting user id (or CAMPUSFLOW_ACTOR)")
	rootCmd.PersistentFlags().StringVar(&flagPlatform, "platform-role", "", "platform role: platform_admin or university_admin")
	rootCmd.PersistentFlags().BoolVar(&flagDev, "dev", false, "use dev mode paths (campusflow-dev)")

	taskAddCmd.Flags().StringVar(&taskAddID, "id", "", "task id (generated when empty)")
	taskAddCmd.Flags().StringVar(&taskAddPriority, "priority", "", "low, medium, high, or critical")
	taskAddCmd.Flags().Float64Var(&taskAddEstimate, "estimate", 0, "estimated effort in hours")
	taskAddCmd.Flags().StringVar(&taskAddDue, "due", "", "due date YYYY-MM-DD")
	taskAddCmd.Flags().StringArrayVar(&taskAddAssignee, "assignee", nil, "assignee user id (repeatable)")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskTransitionCmd("start", "Move a task into in_progress"))
	taskCmd.AddCommand(taskTransitionCmd("review", "Submit a task for review"))
	taskCmd.AddCommand(taskTransitionCmd("approve", "Approve a reviewed task as done"))
	taskCmd.AddCommand(taskTransitionCmd("reject", "Send a reviewed task back to todo"))
	taskCmd.AddCommand(taskTransitionCmd("reopen", "Reopen a done task"))

	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depListCmd)

	leaveSubmitCmd.Flags().StringVar(&leaveType, "type", "", "vacation, sick, exam, conference, or personal")
	leaveSubmitCmd.Flags().StringVar(&leaveFrom, "from", "", "first day YYYY-MM-DD")
	leaveSubmitCmd.Flags().StringVar(&leaveTo, "to", "", "last day YYYY-MM-DD")
	leaveSubmitCmd.Flags().StringVar(&leaveReason, "reason", "", "why the leave is needed")
	leaveCmd.AddCommand(leaveSubmitCmd)
	leaveCmd.AddCommand(leaveTransitionCmd("approve", "Approve a pending leave request"))
	leaveCmd.AddCommand(leaveTransitionCmd("reject", "Reject a pending leave request"))
	leaveCmd.AddCommand(leaveTransitionCmd("cancel", "Cancel your own pending leave request"))

	approvalCmd.AddCommand(approvalInitCmd)
	approvalCmd.AddCommand(approvalTransitionCmd("submit", "submit", "Submit a project for review"))
	approvalCmd.AddCommand(approvalTransitionCmd("approve", "approve", "Approve a project under review"))
	approvalCmd.AddCommand(approvalTransitionCmd("reject", "reject", "Reject a project under review"))
	approvalCmd.AddCommand(approvalTransitionCmd("request-changes", "request_changes", "Send a project back for changes"))
	approvalCmd.AddCommand(approvalTransitionCmd("resubmit", "resubmit", "Resubmit after requested changes"))

	memberCmd.AddCommand(memberSetCmd)

	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "max entries (0 uses the configured limit)")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(leaveCmd)
	rootCmd.AddCommand(approvalCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		if !errors.Is(err, context.Canceled) {
			os.Exit(1)
		}
	}
}

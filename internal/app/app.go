package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/holiday"
	appHTTP "github.com/cmlabs-hris/hris-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/terminal"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance"
	leaveService "github.com/cmlabs-hris/hris-attendance-go/internal/service/leave"
	punchService "github.com/cmlabs-hris/hris-attendance-go/internal/service/punch"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// App holds the wired services shared by the API server and hrisctl.
type App struct {
	Config *config.Config
	Policy attendance.Policy
	DB     *database.DB

	JWT               jwt.Service
	Holidays          holiday.HolidayRepository
	AttendanceService *attendanceService.AttendanceServiceImpl
	LeaveService      *leaveService.LeaveServiceImpl
	SyncService       *punchService.SyncService
	Jobs              *cron.AttendanceJobs
	Scheduler         *cron.Scheduler

	redis *redis.Client
}

// New connects to PostgreSQL (and Redis when configured) and wires every
// service. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &App{Config: cfg, Policy: policy, DB: db}

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = rdb
		locker = lock.NewRedisLocker(rdb)
		slog.Info("Using redis aggregation lock", "addr", cfg.Redis.Addr)
	} else {
		locker = lock.NewLocalLocker()
	}

	loc := policy.Location
	employeeRepo := postgresql.NewEmployeeRepository(db)
	punchRepo := postgresql.NewPunchRepository(db, loc)
	attendanceRepo := postgresql.NewAttendanceRepository(db, loc)
	holidayRepo := postgresql.NewHolidayRepository(db, loc)
	leaveTypeRepo := postgresql.NewLeaveTypeRepository(db)
	leaveBalanceRepo := postgresql.NewLeaveBalanceRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	leaveApprovalRepo := postgresql.NewLeaveApprovalRepository(db)

	terminalClient := terminal.NewHTTPClient(cfg.Terminal.BaseURL, cfg.Terminal.Timeout)
	normalizer := punchService.NewNormalizer(employeeRepo, loc, cfg.Attendance.DeviceSerial)
	a.SyncService = punchService.NewSyncService(terminalClient, normalizer, punchRepo)

	aggregator := attendanceService.NewAggregator(employeeRepo, punchRepo, attendanceRepo, policy, cfg.Attendance.Concurrency)
	reconciler := attendanceService.NewReconciler(attendanceRepo, punchRepo, holidayRepo, policy)
	a.AttendanceService = attendanceService.NewAttendanceService(attendanceRepo, employeeRepo, holidayRepo, aggregator, reconciler, policy)

	a.LeaveService = leaveService.NewLeaveService(
		postgresql.NewTransactor(db),
		leaveTypeRepo,
		leaveBalanceRepo,
		leaveRequestRepo,
		leaveApprovalRepo,
		loc,
	)
	a.LeaveService.SetEventHub(sse.NewHub())

	a.Holidays = holidayRepo
	a.JWT = jwt.NewJWTService(cfg.JWT.Secret)

	a.Scheduler = cron.NewScheduler()
	a.Jobs = cron.NewAttendanceJobs(a.SyncService, aggregator, locker, policy)
	a.Jobs.RegisterJobs(a.Scheduler, cfg.Terminal.SyncInterval)

	return a, nil
}

// Handler returns the API router wrapped with request tracing.
func (a *App) Handler() http.Handler {
	attendanceHandler := appHTTP.NewAttendanceHandler(a.AttendanceService, a.Jobs, a.Policy.Location)
	leaveHandler := appHTTP.NewLeaveHandler(a.LeaveService)

	router := appHTTP.NewRouter(a.Config.App.Env, a.JWT, attendanceHandler, leaveHandler)
	return otelhttp.NewHandler(router, "hris-attendance")
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
	a.DB.Close()
}

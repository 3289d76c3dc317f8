package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/companyim/talenta-api/api/swagger"
	"github.com/companyim/talenta-api/internal/handler"
	"github.com/companyim/talenta-api/internal/middleware"
	"github.com/companyim/talenta-api/internal/repository"
	"github.com/companyim/talenta-api/internal/service"
	"github.com/companyim/talenta-api/internal/sundays"
	"github.com/companyim/talenta-api/pkg/cache"
	"github.com/companyim/talenta-api/pkg/config"
	"github.com/companyim/talenta-api/pkg/database"
	"github.com/companyim/talenta-api/pkg/logger"
	corsmiddleware "github.com/companyim/talenta-api/pkg/middleware/cors"
	reqidmiddleware "github.com/companyim/talenta-api/pkg/middleware/requestid"
)

// @title Talenta API
// @version 1.0.0
// @description Sunday-school attendance and talent reward tracking
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(nil, logr, metricsSvc)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr, metricsSvc)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	calendar := sundays.NewCalendar(cfg.Attendance.Year)

	attendanceRepo := repository.NewAttendanceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	talentRepo := repository.NewTalentRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db, metricsSvc)
	authRepo := repository.NewAuthRepository(db)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, departmentRepo, cacheRepo, calendar, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, departmentRepo, attendanceRepo, talentRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, studentRepo, validate, logr)
	talentSvc := service.NewTalentService(talentRepo, studentRepo, cacheRepo, cfg.Cache.LeaderboardTTL, validate, logr)
	statisticsSvc := service.NewStatisticsService(statisticsRepo, studentRepo, attendanceRepo, cacheRepo, cfg.Cache.StatisticsTTL, logr)
	authSvc := service.NewAuthService(authRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)
	talentHandler := handler.NewTalentHandler(talentSvc)
	statisticsHandler := handler.NewStatisticsHandler(statisticsSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth/admin")
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/check", middleware.JWT(authSvc), authHandler.Check)

	admin := middleware.JWT(authSvc)

	attendance := api.Group("/attendance")
	attendance.GET("", attendanceHandler.List)
	attendance.GET("/available-dates", attendanceHandler.Dates)
	attendance.GET("/grade/:grade", attendanceHandler.ByGrade)
	attendance.GET("/department/:id", attendanceHandler.ByDepartment)
	attendance.GET("/student/:name", attendanceHandler.ByStudentName)
	attendance.POST("", admin, attendanceHandler.Record)
	attendance.PUT("/:id", admin, attendanceHandler.UpdateStatus)
	attendance.DELETE("/:id", admin, attendanceHandler.Delete)

	students := api.Group("/students")
	students.GET("", studentHandler.List)
	students.GET("/search", studentHandler.Search)
	students.GET("/name/:name", studentHandler.GetByName)
	students.GET("/:id", studentHandler.Get)
	students.POST("", admin, studentHandler.Create)
	students.PUT("/:id", admin, studentHandler.Update)
	students.PUT("/:id/department", admin, studentHandler.ChangeDepartment)
	students.DELETE("/all", admin, studentHandler.DeleteAll)
	students.DELETE("/:id", admin, studentHandler.Delete)

	departments := api.Group("/departments")
	departments.GET("", departmentHandler.List)
	departments.GET("/:id", departmentHandler.Get)
	departments.GET("/:id/students", departmentHandler.Students)
	departments.POST("", admin, departmentHandler.Create)
	departments.PUT("/:id", admin, departmentHandler.Update)
	departments.DELETE("/:id", admin, departmentHandler.Delete)

	talents := api.Group("/talents")
	talents.GET("/student/name/:name", talentHandler.SummaryByName)
	talents.GET("/student/:id", talentHandler.Summary)
	talents.GET("/transactions", talentHandler.Transactions)
	talents.GET("/leaderboard", talentHandler.Leaderboard)
	talents.GET("/grade/:grade", talentHandler.GradeAggregate)
	talents.GET("/department/:id", talentHandler.DepartmentAggregate)
	talents.POST("/adjust", admin, talentHandler.Adjust)

	statistics := api.Group("/statistics")
	statistics.GET("/overview", statisticsHandler.Overview)
	statistics.GET("/student/:id", statisticsHandler.Student)
	statistics.GET("/period", statisticsHandler.Period)
	statistics.GET("/trend", statisticsHandler.Trend)
	statistics.GET("/grades", statisticsHandler.GradeComparison)
	statistics.GET("/departments", statisticsHandler.DepartmentComparison)
	statistics.GET("/talent", statisticsHandler.TalentDistribution)
	statistics.GET("/export", statisticsHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "attendance_year", cfg.Attendance.Year)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/idir-saidi/campus-records-api/internal/middleware"
	"github.com/idir-saidi/campus-records-api/internal/models"
	"github.com/idir-saidi/campus-records-api/internal/service"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Approvals   *ApprovalHandler
	Courses     *CourseHandler
	Groups      *GroupHandler
	Assignments *AssignmentHandler
	Grades      *GradeHandler
	Attendance  *AttendanceHandler
	Notify      *NotificationHandler
	Messages    *MessageHandler
	Files       *CourseFileHandler
	Timetables  *TimetableHandler
	Exports     *ExportHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix. Coarse
// role gating happens here; fine-grained authority checks live in the
// services.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)

		authed := authGroup.Group("", middleware.JWT(auth))
		authed.POST("/logout", h.Auth.Logout)
		authed.PUT("/password", h.Auth.ChangePassword)
	}

	// Signed links carry their own credential.
	api.GET("/files/shared", h.Files.SharedDownload)

	protected := api.Group("", middleware.JWT(auth))

	users := protected.Group("/users")
	{
		users.GET("", staff, h.Users.List)
		users.GET("/:id", middleware.RBAC("ADMIN", "TEACHER", "SELF"), h.Users.Get)
		users.POST("/staff", admin, h.Users.CreateStaff)
		users.PUT("/:id/group", admin, h.Users.AssignGroup)
		users.DELETE("/:id", admin, h.Users.Delete)
	}

	approvals := protected.Group("/approvals", admin)
	{
		approvals.GET("/pending", h.Approvals.ListPending)
		approvals.POST("/:id/approve", h.Approvals.Approve)
		approvals.POST("/:id/reject", h.Approvals.Reject)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", h.Courses.List)
		courses.GET("/:id", h.Courses.Get)
		courses.POST("", admin, h.Courses.Create)
		courses.PUT("/:id", admin, h.Courses.Update)
		courses.DELETE("/:id", admin, h.Courses.Delete)
	}

	groups := protected.Group("/groups")
	{
		groups.GET("", h.Groups.List)
		groups.GET("/:id", h.Groups.Get)
		groups.GET("/:id/students", staff, h.Groups.ListStudents)
		groups.POST("", admin, h.Groups.Create)
		groups.PUT("/:id", admin, h.Groups.Update)
		groups.DELETE("/:id", admin, h.Groups.Delete)
		groups.PUT("/:id/courses/:courseId", admin, h.Groups.AddCourse)
		groups.DELETE("/:id/courses/:courseId", admin, h.Groups.RemoveCourse)
	}

	assignments := protected.Group("/assignments")
	{
		assignments.POST("", admin, h.Assignments.Create)
		assignments.GET("/mine", staff, h.Assignments.Mine)
		assignments.GET("/teacher/:teacherId", staff, h.Assignments.ListForTeacher)
		assignments.GET("/group/:groupId", h.Assignments.ListForGroup)
		assignments.DELETE("/:id", admin, h.Assignments.Delete)
		assignments.POST("/:id/sessions", admin, h.Assignments.AddSession)
		assignments.GET("/:id/sessions", h.Assignments.ListSessions)
		assignments.DELETE("/:id/sessions/:sessionId", admin, h.Assignments.RemoveSession)
	}

	grades := protected.Group("/grades")
	{
		grades.POST("", staff, h.Grades.Upsert)
		grades.POST("/bulk", staff, h.Grades.Bulk)
		grades.GET("/mine", h.Grades.Mine)
		grades.GET("/student/:studentId", staff, h.Grades.ForStudent)
		grades.GET("/course/:courseId/group/:groupId", staff, h.Grades.Sheet)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("", staff, h.Attendance.Mark)
		attendance.POST("/bulk", staff, h.Attendance.Bulk)
		attendance.GET("", h.Attendance.List)
		attendance.GET("/summary/:studentId/:courseId", h.Attendance.Summary)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notify.List)
		notifications.GET("/unread-count", h.Notify.UnreadCount)
		notifications.POST("/:id/read", h.Notify.MarkRead)
	}

	messages := protected.Group("/messages")
	{
		messages.POST("", h.Messages.Send)
		messages.GET("/inbox", h.Messages.Inbox)
		messages.GET("/conversation/:userId", h.Messages.Conversation)
		messages.GET("/unread-count", h.Messages.UnreadCount)
		messages.POST("/:id/read", h.Messages.MarkRead)
	}

	files := protected.Group("/files")
	{
		files.POST("", staff, h.Files.Upload)
		files.GET("/course/:courseId", h.Files.ListByCourse)
		files.GET("/:id/download", h.Files.Download)
		files.POST("/:id/link", staff, h.Files.ShareLink)
		files.DELETE("/:id", staff, h.Files.Delete)
	}

	timetables := protected.Group("/timetables")
	{
		timetables.POST("", admin, h.Timetables.Upload)
		timetables.GET("/group/:groupId", h.Timetables.ListForGroup)
		timetables.DELETE("/:id", admin, h.Timetables.Delete)
	}

	exports := protected.Group("/exports")
	{
		exports.GET("/grades/:courseId/:groupId", staff, h.Exports.GradeSheet)
		exports.GET("/transcript/:studentId", h.Exports.Transcript)
		exports.GET("/attendance", h.Exports.Attendance)
	}

	protected.GET("/metrics/snapshot", admin, h.Metrics.Snapshot)
}

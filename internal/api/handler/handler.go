package handler

import "placement-portal/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Student      *StudentHandler
	Portal       *PortalHandler
	Venue        *VenueHandler
	Module       *ModuleHandler
	Attendance   *AttendanceHandler
	SystemConfig *SystemConfigHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Student:      NewStudentHandler(svc.Student),
		Portal:       NewPortalHandler(svc.Portal),
		Venue:        NewVenueHandler(svc.Venue),
		Module:       NewModuleHandler(svc.Module),
		Attendance:   NewAttendanceHandler(svc.Attendance),
		SystemConfig: NewSystemConfigHandler(svc.SystemConfig),
		Export:       NewExportHandler(svc.Export),
	}
}

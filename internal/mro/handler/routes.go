package handler

import (
	"github.com/Rithish-Sripaul/mro-system/internal/middleware"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"github.com/gin-gonic/gin"
)

// RouteDeps carries the middleware the routes are guarded with.
type RouteDeps struct {
	// Auth guards every route except login, register and material images.
	Auth gin.HandlerFunc
	// LoginLimit, when set, rate limits login and register.
	LoginLimit gin.HandlerFunc
}

// RegisterRoutes 注册业务路由
func RegisterRoutes(r gin.IRouter, h *Handlers, deps RouteDeps) {
	limited := func(next gin.HandlerFunc) []gin.HandlerFunc {
		if deps.LoginLimit == nil {
			return []gin.HandlerFunc{next}
		}
		return []gin.HandlerFunc{deps.LoginLimit, next}
	}

	// 认证
	auth := r.Group("/auth")
	{
		auth.POST("/register", limited(h.Auth.Register)...)
		auth.POST("/login", limited(h.Auth.Login)...)
		auth.POST("/logout", deps.Auth, h.Auth.Logout)
		auth.GET("/me", deps.Auth, h.Auth.Me)
	}

	// 工单 + 工序
	jobs := r.Group("/jobs", deps.Auth)
	{
		jobs.GET("", h.Job.ListJobs)
		jobs.POST("", h.Job.CreateJob)
		jobs.GET("/next-position", h.Job.NextPosition)
		jobs.GET("/form-options", h.Job.FormOptions)
		jobs.POST("/seed", middleware.RequireMaster(), h.Job.SeedJobs)
		jobs.GET("/files/:fileId/download", h.File.Download(entity.ContextJob))
		jobs.GET("/:id", h.Job.GetJob)
		jobs.PUT("/:id", h.Job.UpdateJob)
		jobs.PUT("/:id/status", h.Job.UpdateStatus)
		jobs.PUT("/:id/position", h.Job.MoveJob)

		jobs.GET("/:id/operations", h.Operation.ListOperations)
		jobs.POST("/:id/operations", h.Operation.CreateOperation)
		jobs.GET("/:id/operations/:opId", h.Operation.GetOperation)
		jobs.PUT("/:id/operations/:opId", h.Operation.UpdateOperation)
		jobs.DELETE("/:id/operations/:opId", h.Operation.DeleteOperation)
		jobs.POST("/:id/operations/:opId/complete", h.Operation.CompleteOperation)

		jobs.GET("/:id/comments", h.Comment.List(entity.ContextJob))
		jobs.POST("/:id/comments", h.Comment.Create(entity.ContextJob))
		jobs.GET("/:id/files", h.File.List(entity.ContextJob))
		jobs.POST("/:id/files", h.File.Upload(entity.ContextJob))
	}

	// 原材料图片公开访问
	r.GET("/inventory/image/:id", h.Inventory.Image)

	// 库存 + 采购
	inventory := r.Group("/inventory", deps.Auth)
	{
		inventory.GET("/raw-materials", h.Inventory.ListMaterials)
		inventory.POST("/raw-materials", h.Inventory.CreateMaterial)
		inventory.GET("/raw-materials/options", h.Inventory.Options)
		inventory.GET("/raw-materials/low-stock", h.Inventory.LowStock)
		inventory.GET("/raw-materials/export", h.Inventory.Export)
		inventory.GET("/raw-materials/:id", h.Inventory.GetMaterial)
		inventory.PUT("/raw-materials/:id", h.Inventory.UpdateMaterial)

		inventory.GET("/procurements", h.Procurement.ListProcurements)
		inventory.POST("/procurements", h.Procurement.CreateProcurement)
		inventory.GET("/procurements/:id", h.Procurement.GetProcurement)
		inventory.PUT("/procurements/:id", h.Procurement.UpdateProcurement)
		inventory.DELETE("/procurements/:id", h.Procurement.DeleteProcurement)
		inventory.POST("/procurements/:id/bill", h.Procurement.UploadBill)
		inventory.GET("/procurements/:id/bill", h.Procurement.DownloadBill)
	}

	// 设备
	machines := r.Group("/machines", deps.Auth)
	{
		machines.GET("", h.Machine.ListMachines)
		machines.POST("", h.Machine.CreateMachine)
		machines.GET("/files/:fileId/download", h.File.Download(entity.ContextMachine))
		machines.GET("/:id", h.Machine.GetMachine)
		machines.PUT("/:id/status", h.Machine.UpdateStatus)
		machines.GET("/:id/comments", h.Comment.List(entity.ContextMachine))
		machines.POST("/:id/comments", h.Comment.Create(entity.ContextMachine))
		machines.GET("/:id/files", h.File.List(entity.ContextMachine))
		machines.POST("/:id/files", h.File.Upload(entity.ContextMachine))
	}
}

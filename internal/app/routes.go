package app

import (
	"github.com/gin-gonic/gin"

	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/modules/analysis"
	"github.com/CJCR07/veridicus/internal/modules/audit"
	"github.com/CJCR07/veridicus/internal/modules/cases"
	"github.com/CJCR07/veridicus/internal/modules/contradiction"
	"github.com/CJCR07/veridicus/internal/modules/evidence"
	"github.com/CJCR07/veridicus/internal/modules/health"
	"github.com/CJCR07/veridicus/internal/modules/tasks"
	"github.com/CJCR07/veridicus/internal/modules/vibe"
	"github.com/CJCR07/veridicus/internal/pkg/genai"
	"github.com/CJCR07/veridicus/internal/pkg/jwt"
	"github.com/CJCR07/veridicus/internal/pkg/objectstore"
	pkgredis "github.com/CJCR07/veridicus/internal/pkg/redis"
	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/taskqueue"
)

func (a *App) registerRoutes(rc *pkgredis.Client, store *objectstore.Store, verifier *jwt.Verifier, ai *genai.Client) {
	r := a.router
	db := a.db

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.RateLimit(rc.Raw()))

	// Shared services
	auditSvc := audit.NewService(db, a.logger)
	caseSvc := cases.NewService(db, store, a.logger)
	evidenceSvc := evidence.NewService(db, store, a.cfg.ContentSniffing, a.logger)
	taskSvc := taskqueue.NewService(rc)
	worker := evidence.NewWorker(db, store, taskSvc, ai, auditSvc, a.logger)

	// A nil *genai.Client must stay a nil interface so the services can
	// detect the degraded mode.
	var modelClient analysis.ModelClient
	if ai != nil {
		modelClient = ai
	}
	analysisSvc := analysis.NewService(db, modelClient, store, auditSvc, a.logger)
	contradictionSvc := contradiction.NewService(db)

	ownsCase := caseSvc.Owns

	// Public surface
	health.NewHandler(db).RegisterRoutes(r)

	// The live audio socket does its auth in-protocol.
	var analyzer vibe.AudioAnalyzer
	if ai != nil {
		analyzer = ai
	}
	vibe.NewHandler(verifier, analyzer, ownsCase, a.logger).RegisterRoutes(r)

	// Authenticated API
	api := r.Group("/api")
	api.Use(middleware.Auth(verifier))

	cases.NewHandler(caseSvc, auditSvc).RegisterRoutes(api)
	evidence.NewHandler(evidenceSvc, worker, auditSvc, ownsCase).RegisterRoutes(api)
	analysis.NewHandler(analysisSvc, ownsCase).RegisterRoutes(api)
	contradiction.NewHandler(contradictionSvc, ownsCase).RegisterRoutes(api)
	audit.NewHandler(auditSvc, ownsCase).RegisterRoutes(api)
	tasks.NewHandler(taskSvc).RegisterRoutes(api)
}

package router

import (
	"context"
	"errors"

	"talentvault/internal/api/handler"
	"talentvault/internal/config"
	"talentvault/internal/intake"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"gorm.io/gorm"
)

// RegisterRoutes wires the HTTP surface. Everything under /api/v1 requires
// a valid X-API-Key; /health stays open for liveness probes.
func RegisterRoutes(h *server.Hertz, cfg *config.Config,
	intakeHandler *handler.IntakeHandler,
	candidateHandler *handler.CandidateHandler,
	digestHandler *handler.DigestHandler,
) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if len(cfg.APIKeys) > 0 {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:X-API-Key", ""),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				for _, allowed := range cfg.APIKeys {
					if key == allowed {
						return true, nil
					}
				}
				return false, nil
			}),
		))
	}

	api.POST("/intake/email", func(c context.Context, ctx *app.RequestContext) {
		var in intake.InboundEmail
		if err := ctx.BindAndValidate(&in); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		resp, err := intakeHandler.HandleEmailWebhook(c, &in)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/candidates/:locator", func(c context.Context, ctx *app.RequestContext) {
		resp, err := candidateHandler.GetByLocator(c, ctx.Param("locator"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "candidate not found"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/candidates/anonymize", func(c context.Context, ctx *app.RequestContext) {
		var req handler.AnonymizeRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := candidateHandler.AnonymizePreview(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/candidates/bullets", func(c context.Context, ctx *app.RequestContext) {
		var req handler.BulletsRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := candidateHandler.BulletsPreview(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/digest/preview", func(c context.Context, ctx *app.RequestContext) {
		var req handler.DigestRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := digestHandler.Preview(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/digest/issue", func(c context.Context, ctx *app.RequestContext) {
		var req handler.DigestRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := digestHandler.Issue(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}

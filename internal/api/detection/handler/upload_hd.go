package detectionHandler

import (
	contextPkg "BoxDetector/pkg/context"
	"BoxDetector/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
)

func (h *DetectionHandler) GetUpload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	upload, err := h.detectionService.GetUpload(contextPkg.FromFiberCtx(ctx), ctx.Params("name"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_upload")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, upload)
}

func (h *DetectionHandler) Health(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, h.detectionService.Health())
}

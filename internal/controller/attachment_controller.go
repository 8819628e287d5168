package controller

import (
	"io"

	"ai-chatwidget-be/internal/pkg/apperror"
	"ai-chatwidget-be/internal/pkg/serverutils"
	"ai-chatwidget-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAttachmentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Sync(ctx *fiber.Ctx) error
}

type attachmentController struct {
	attachmentService service.IAttachmentService
}

func NewAttachmentController(attachmentService service.IAttachmentService) IAttachmentController {
	return &attachmentController{
		attachmentService: attachmentService,
	}
}

func (c *attachmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/attachment/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("upload", c.Upload)
	h.Delete(":id", c.Delete)
	h.Post(":chatId/sync", c.Sync)
}

func (c *attachmentController) Upload(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	chatId, err := uuid.Parse(ctx.FormValue("chat_id"))
	if err != nil {
		return apperror.New(apperror.KindValidation, "chat_id is required")
	}
	background := ctx.FormValue("background") == "true"

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return apperror.New(apperror.KindValidation, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, "open uploaded file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, "read uploaded file", err)
	}

	res, err := c.attachmentService.Upload(ctx.Context(), userId, chatId,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, background)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload attachment", res))
}

func (c *attachmentController) Delete(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	idParam := ctx.Params("id")
	id, _ := uuid.Parse(idParam)

	if err := c.attachmentService.Delete(ctx.Context(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete attachment", nil))
}

func (c *attachmentController) Sync(ctx *fiber.Ctx) error {
	chatIdParam := ctx.Params("chatId")
	chatId, err := uuid.Parse(chatIdParam)
	if err != nil {
		return apperror.New(apperror.KindValidation, "invalid chat id")
	}

	if err := c.attachmentService.RequestSync(ctx.Context(), chatId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Sync queued", nil))
}

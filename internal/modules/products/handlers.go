package products

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type Handler struct {
	service        *Service
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, role, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	items, err := h.service.List(c.UserContext(), role, userID)
	if err != nil {
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to load products")
	}
	return c.JSON(ProductListResponse{Products: items, Total: len(items)})
}

func (h *Handler) Unassigned(c *fiber.Ctx) error {
	items, err := h.service.Unassigned(c.UserContext())
	if err != nil {
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to load products")
	}
	return c.JSON(ProductListResponse{Products: items, Total: len(items)})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	fh, status, msg := h.imagePart(c)
	if status != 0 {
		return modules.Fail(c, status, msg)
	}

	var img *Image
	if fh != nil {
		f, err := fh.Open()
		if err != nil {
			return modules.Fail(c, fiber.StatusBadRequest, "Invalid image upload")
		}
		defer f.Close()

		kind, body, err := storage.SniffImage(f)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedImage) {
				return modules.Fail(c, fiber.StatusUnsupportedMediaType, "Image must be a JPEG, PNG, WebP or GIF file")
			}
			return modules.Fail(c, fiber.StatusBadRequest, "Invalid image upload")
		}
		img = &Image{
			Body:        body,
			Size:        fh.Size,
			ContentType: kind.ContentType,
			Ext:         kind.Ext,
		}
	}

	product, err := h.service.Create(c.UserContext(), userID, req, img)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPrice):
			return modules.Fail(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrImageUpload):
			return modules.Fail(c, fiber.StatusBadGateway, "Failed to upload image")
		default:
			return modules.Fail(c, fiber.StatusInternalServerError, "Failed to add product")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *Handler) Assign(c *fiber.Ctx) error {
	actorID, _, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid product ID")
	}

	var req AssignProductRequest
	if err := c.BodyParser(&req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, err.Error())
	}
	assignee := uuid.MustParse(req.UserID)

	product, err := h.service.Assign(c.UserContext(), actorID, productID, assignee)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrAssigneeNotFound):
			return modules.Fail(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrAssigneeRole):
			return modules.Fail(c, fiber.StatusUnprocessableEntity, err.Error())
		default:
			return modules.Fail(c, fiber.StatusInternalServerError, "Failed to assign product")
		}
	}

	return c.JSON(product)
}

// imagePart returns the optional "image" file part. A non-zero status
// means the request must be rejected with msg. The format is checked from
// the file's bytes once it is opened.
func (h *Handler) imagePart(c *fiber.Ctx) (*multipart.FileHeader, int, string) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, 0, ""
	}

	fh, err := c.FormFile("image")
	if errors.Is(err, fasthttp.ErrMissingFile) {
		return nil, 0, ""
	}
	if err != nil {
		return nil, fiber.StatusBadRequest, "Invalid image upload"
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return nil, fiber.StatusRequestEntityTooLarge, "Image is too large"
	}
	return fh, 0, ""
}

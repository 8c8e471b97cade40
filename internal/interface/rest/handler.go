package rest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
	"github.com/jinford/hybrid-rag/internal/core/rag"
)

const serviceName = "nazarriya-llm"

type handler struct {
	svc      *rag.Service
	validate *validator.Validate
}

func (h *handler) parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("rest.parse", "invalid request body: %v", err)
	}
	return h.validate.Struct(out)
}

func (h *handler) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Nazarriya LLM Service",
		"version": rag.Version,
		"docs":    "/docs",
		"health":  "/rag/health",
	})
}

func (h *handler) liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": serviceName})
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(h.svc.Health())
}

func (h *handler) query(c *fiber.Ctx) error {
	var req QueryRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	resp, err := h.svc.Query(c.UserContext(), rag.Query{
		Text:      req.Query,
		History:   req.Turns(),
		MaxTokens: req.MaxTokens,
		K:         req.K,
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// upload は file_path が指定されていればそのファイルを、無ければ multipart の file を取り込む
func (h *handler) upload(c *fiber.Ctx) error {
	if path := c.FormValue("file_path"); path != "" {
		result, err := h.svc.AddDocument(c.UserContext(), path)
		if err != nil {
			return err
		}
		return c.JSON(UploadResponse{Message: result.Message, DocumentsProcessed: 1, ChunksCreated: result.ChunksCreated})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperror.Validation("rest.upload", "file or file_path is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	result, err := h.svc.Upload(c.UserContext(), fileHeader.Filename, f)
	if err != nil {
		return err
	}
	return c.JSON(UploadResponse{Message: result.Message, DocumentsProcessed: 1, ChunksCreated: result.ChunksCreated})
}

func (h *handler) ingest(c *fiber.Ctx) error {
	var req IngestRequest

	// 素の JSON 配列も受け付ける
	var paths []string
	if err := json.Unmarshal(c.Body(), &paths); err == nil {
		req.FilePaths = paths
		if err := h.validate.Struct(req); err != nil {
			return err
		}
	} else if err := h.parse(c, &req); err != nil {
		return err
	}

	result, err := h.svc.Ingest(c.UserContext(), req.FilePaths)
	if err != nil {
		return err
	}
	return c.JSON(UploadResponse{
		Message:            result.Message,
		DocumentsProcessed: result.FilesProcessed,
		ChunksCreated:      result.TotalChunks,
	})
}

func (h *handler) listDocuments(c *fiber.Ctx) error {
	docs, err := h.svc.ListDocuments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(docs)
}

func (h *handler) deleteDocument(c *fiber.Ctx) error {
	filename := c.Params("filename")
	if err := h.svc.DeleteDocument(c.UserContext(), filename); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: fmt.Sprintf("Document %s deleted successfully", filename)})
}

func (h *handler) status(c *fiber.Ctx) error {
	return c.JSON(h.svc.Status(c.UserContext()))
}

func (h *handler) reset(c *fiber.Ctx) error {
	if err := h.svc.ResetSystem(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: "System reset successfully"})
}

func (h *handler) estimate(c *fiber.Ctx) error {
	var req EstimateRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	return c.JSON(h.svc.EstimateCost(req.Input, req.Output))
}

func (h *handler) listDataset(c *fiber.Ctx) error {
	var items []dataset.Item
	if category := c.Query("category"); category != "" {
		items = h.svc.Dataset().ItemsByCategory(category)
	} else {
		items = h.svc.Dataset().Items()
	}
	if items == nil {
		items = []dataset.Item{}
	}
	return c.JSON(items)
}

func (h *handler) matchDataset(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return apperror.Validation("rest.match", "query is required")
	}
	threshold := c.QueryFloat("threshold", dataset.DefaultThreshold)

	match, ok := h.svc.Dataset().FindBestMatch(query, threshold)
	if !ok {
		return c.JSON(MatchResponse{Found: false})
	}
	return c.JSON(MatchResponse{Found: true, Item: &match.Item, SimilarityScore: match.SimilarityScore})
}

func (h *handler) addDatasetItem(c *fiber.Ctx) error {
	var req DatasetItemRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	item, err := h.svc.Dataset().Add(c.UserContext(), req.toNewItem())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// updateDatasetItem は :ref が整数なら位置、UUID なら ID で対象を特定する
func (h *handler) updateDatasetItem(c *fiber.Ctx) error {
	var req DatasetUpdateRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	ds := h.svc.Dataset()
	ref := c.Params("ref")

	var (
		item dataset.Item
		err  error
	)
	if index, convErr := strconv.Atoi(ref); convErr == nil {
		item, err = ds.Update(c.UserContext(), index, req.toFields())
	} else if id, parseErr := uuid.Parse(ref); parseErr == nil {
		item, err = ds.UpdateByID(c.UserContext(), id, req.toFields())
	} else {
		return apperror.Validation("rest.dataset", "invalid item reference: %q", ref)
	}
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *handler) deleteDatasetItem(c *fiber.Ctx) error {
	ds := h.svc.Dataset()
	ref := c.Params("ref")

	var (
		item dataset.Item
		err  error
	)
	if index, convErr := strconv.Atoi(ref); convErr == nil {
		item, err = ds.Delete(c.UserContext(), index)
	} else if id, parseErr := uuid.Parse(ref); parseErr == nil {
		item, err = ds.DeleteByID(c.UserContext(), id)
	} else {
		return apperror.Validation("rest.dataset", "invalid item reference: %q", ref)
	}
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *handler) clearDataset(c *fiber.Ctx) error {
	if err := h.svc.Dataset().Clear(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: "Dataset cleared successfully"})
}

func (h *handler) ingestDataset(c *fiber.Ctx) error {
	var req DatasetIngestRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	result, err := h.svc.Dataset().IngestFile(c.UserContext(), req.FilePath)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

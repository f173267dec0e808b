package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"docconv/internal/convert"
	"docconv/internal/domain"
	"docconv/internal/metrics"
	u "docconv/internal/utils"
)

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ConversionParams holds a validated conversion request and its response name.
type ConversionParams struct {
	Spec     domain.ToolSpec
	Request  domain.ConversionRequest
	Filename string
}

// ConversionService bundles configuration and dependencies for the conversion endpoints.
type ConversionService struct {
	Config  *u.Config
	Redis   *redis.Client
	Metrics *metrics.Recorder

	dispatcherMu sync.Mutex
	dispatcher   *convert.Dispatcher
}

// NewConversionService creates a new ConversionService instance.
func NewConversionService(cfg u.Config, rdb *redis.Client, rec *metrics.Recorder) *ConversionService {
	return &ConversionService{
		Config:  &cfg,
		Redis:   rdb,
		Metrics: rec,
	}
}

func (svc *ConversionService) getDispatcher() *convert.Dispatcher {
	svc.dispatcherMu.Lock()
	defer svc.dispatcherMu.Unlock()

	if svc.dispatcher == nil {
		svc.dispatcher = convert.NewDispatcher(svc.Config.Convert.ScratchDir)
	}
	return svc.dispatcher
}

// HandleTools lists the available tools.
func HandleTools(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": domain.Tools()})
}

// HandleConversion runs the tool named in the route, or serves a cached result.
func (svc *ConversionService) HandleConversion(c *fiber.Ctx) error {
	params, err := validateAndExtractConversionParams(c, *svc.Config)
	if err != nil {
		return err
	}
	return svc.processConversion(c, params)
}

func (svc *ConversionService) cacheEnabled(tool domain.Tool) bool {
	return svc.Redis != nil && svc.Config.Cache.ResultCacheEnabled && !tool.RequiresPassword()
}

func (svc *ConversionService) processConversion(c *fiber.Ctx, params *ConversionParams) error {
	req := params.Request
	slug := params.Spec.Slug
	rid := requestID(c)

	var cacheKey string
	if svc.cacheEnabled(req.Tool()) {
		cacheKey = computeResultCacheKey(req)
		if cached, err := getCachedResult(c.Context(), svc.Redis, cacheKey); err == nil && cached != nil {
			u.Info("Result cache hit", "tool", slug, "key", cacheKey, "request_id", rid)
			svc.Metrics.ObserveCacheHit(slug)
			return sendResult(c, params.Spec.MIMEType, params.Filename, cached)
		}
	}

	start := time.Now()
	res, err := svc.getDispatcher().Convert(c.UserContext(), req)
	elapsed := time.Since(start)

	var outBytes int
	if res != nil {
		outBytes = len(res.Data)
	}
	svc.Metrics.ObserveConversion(slug, err, elapsed, req.InputBytes(), outBytes)

	if err != nil {
		u.Warn("Conversion failed", "tool", slug, "inputs", req.InputCount(), "bytes_in", req.InputBytes(),
			"duration_ms", elapsed.Milliseconds(), "kind", string(domain.KindOf(err)), "request_id", rid, "error", err)
		return err
	}

	if outBytes > svc.Config.Limits.MaxOutputBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Result exceeds allowed size")
	}

	if cacheKey != "" {
		setCachedResult(c.Context(), svc.Redis, cacheKey, res.Data, svc.Config.Cache.ResultCacheTTL)
	}

	u.Info("Conversion finished", "tool", slug, "inputs", req.InputCount(), "bytes_in", req.InputBytes(),
		"bytes_out", outBytes, "duration_ms", elapsed.Milliseconds(), "filename", params.Filename, "request_id", rid)

	return sendResult(c, res.MIMEType, params.Filename, res.Data)
}

func sendResult(c *fiber.Ctx, mimeType, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, mimeType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}

func requestID(c *fiber.Ctx) string {
	if id := c.Get(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// validateAndExtractConversionParams resolves the tool and reads the multipart form.
func validateAndExtractConversionParams(c *fiber.Ctx, cfg u.Config) (*ConversionParams, error) {
	tool, err := domain.ParseTool(c.Params("tool"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Unknown tool: "+c.Params("tool"))
	}
	spec, _ := tool.Spec()

	form, err := c.MultipartForm()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request: multipart form expected")
	}

	headers := append(slices.Clone(form.File["files"]), form.File["file"]...)
	if len(headers) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request: no files uploaded")
	}
	if len(headers) > cfg.Limits.MaxFiles {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request: at most %d files allowed", cfg.Limits.MaxFiles))
	}
	if !spec.Multiple && len(headers) > 1 {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request: %s takes exactly one file", spec.Slug))
	}

	inputs := make([]domain.Input, 0, len(headers))
	for _, fh := range headers {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !slices.Contains(spec.InputExtensions, ext) {
			return nil, fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Invalid file type %q: expected one of %s", fh.Filename, strings.Join(spec.InputExtensions, ", ")))
		}
		data, err := readFormFile(fh)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request: cannot read "+fh.Filename)
		}
		if len(data) == 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request: "+fh.Filename+" is empty")
		}
		inputs = append(inputs, domain.Input{Name: fh.Filename, Data: data})
	}

	var p domain.Params
	if p.StartPage, err = formInt(c, "start"); err != nil {
		return nil, err
	}
	if p.EndPage, err = formInt(c, "end"); err != nil {
		return nil, err
	}
	p.Password = c.FormValue("password")

	filename := c.FormValue("filename")
	if filename == "" {
		filename = spec.DefaultFilename
	} else {
		if !strings.HasSuffix(filename, spec.Extension) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Filename must end with "+spec.Extension)
		}
		if !filenamePattern.MatchString(filename) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Filename contains invalid characters")
		}
	}

	return &ConversionParams{
		Spec:     spec,
		Request:  domain.NewRequest(tool, inputs, p),
		Filename: filename,
	}, nil
}

func formInt(c *fiber.Ctx, key string) (int, error) {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s: must be an integer", key))
	}
	return n, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// computeResultCacheKey hashes everything that determines the output. Input
// names do not affect the result and are left out.
func computeResultCacheKey(req domain.ConversionRequest) string {
	h := sha256.New()
	p := req.Params()
	h.Write([]byte(req.Tool().String()))
	h.Write([]byte(strconv.Itoa(p.StartPage) + "-" + strconv.Itoa(p.EndPage)))
	var size [8]byte
	for _, in := range req.Inputs() {
		binary.BigEndian.PutUint64(size[:], uint64(len(in.Data)))
		h.Write(size[:])
		h.Write(in.Data)
	}
	return "convcache:" + hex.EncodeToString(h.Sum(nil))
}

// getCachedResult returns nil, nil on a miss.
func getCachedResult(ctx context.Context, rdb *redis.Client, key string) ([]byte, error) {
	ctxRedis, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	cached, err := rdb.Get(ctxRedis, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		u.Warn("Redis read failed", "error", err)
		return nil, err
	}
	return cached, nil
}

func setCachedResult(ctx context.Context, rdb *redis.Client, key string, data []byte, ttl time.Duration) {
	ctxRedis, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := rdb.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}

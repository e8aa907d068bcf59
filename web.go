package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"dressup/internal/compose"
)

type Config struct {
	// Addr is the listen address. Empty picks a random local port.
	Addr             string
	BodyLimit        int
	Compositor       Compositor
	OnBeforeShutdown func()
	OnReady          func(addr string)
}

type WebApp struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, compose.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, compose.ErrEmptyForeground), errors.Is(err, compose.ErrDegenerateGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, compose.ErrSegmentationUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *WebApp) newApp() *fiber.App {
	bodyLimit := a.config.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := statusFor(err)
			log.Ctx(c.Context()).Error().
				Err(err).
				Int("status", code).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			if code == http.StatusInternalServerError {
				return c.Status(code).JSON(fiber.Map{"error": "Internal Server Error"})
			}
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	webapp.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	webapp.Post("/api/compose", a.handleCompose)

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return c.SendStatus(http.StatusNoContent)
	})

	return webapp
}

func (a *WebApp) handleCompose(c *fiber.Ctx) error {
	id := uuid.NewString()
	logger := log.With().Str("request_id", id).Logger()
	ctx := logger.WithContext(c.UserContext())

	avatarFile, err := c.FormFile("avatar")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Please upload both avatar and garment images")
	}
	garmentFile, err := c.FormFile("garment")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Please upload both avatar and garment images")
	}

	avatar, err := readUpload(avatarFile)
	if err != nil {
		return fmt.Errorf("avatar: %w", err)
	}
	avatarImg, err := decodeImage(bytes.NewReader(avatar))
	if err != nil {
		return fmt.Errorf("avatar: %w", err)
	}
	garment, err := readUpload(garmentFile)
	if err != nil {
		return fmt.Errorf("garment: %w", err)
	}

	var out bytes.Buffer
	res, err := a.config.Compositor.Compose(ctx, avatarImg, bytes.NewReader(garment), &out)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Stringer("size", res.Size).
		Stringer("offset", res.Offset).
		Msg("Composited garment")

	return c.JSON(fiber.Map{
		"success": true,
		"id":      id,
		"result":  base64.StdEncoding.EncodeToString(out.Bytes()),
		"message": "Successfully composited!",
		"offset":  fiber.Map{"x": res.Offset.X, "y": res.Offset.Y},
		"size":    fiber.Map{"width": res.Size.X, "height": res.Size.Y},
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	var b bytes.Buffer
	if _, err := b.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return b.Bytes(), nil
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.newApp()

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	addr := a.config.Addr
	if addr == "" {
		// Let the OS assign a random available port
		addr = "localhost:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

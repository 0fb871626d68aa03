package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	handler "movie-catalog-bot/api"
	"movie-catalog-bot/internal/bot"
	"movie-catalog-bot/internal/tg"
)

const (
	pollTimeout     = 30
	updateTimeout   = 30 * time.Second
	sweepInterval   = time.Minute
	shutdownTimeout = 5 * time.Second
	defaultPort     = "8080"
)

func (a *App) connect(ctx context.Context) (*tg.Client, *bot.Bot, error) {
	if err := a.cfg.RequireToken(); err != nil {
		return nil, nil, err
	}
	client, err := tg.NewClient(a.cfg.BotToken, "")
	if err != nil {
		return nil, nil, err
	}
	client.SetDebug(a.cfg.Debug)
	a.log.Info("authorized on Telegram", "username", client.Username())

	b := bot.New(client, a.machine, a.log)
	if err := b.RegisterCommands(ctx); err != nil {
		a.log.Warn("register bot commands", "error", err)
	}
	if a.memory != nil {
		go a.memory.Run(ctx, sweepInterval)
	}
	return client, b, nil
}

// RunPolling long-polls Telegram until ctx is done. Owners are served
// concurrently and each owner's updates in arrival order. Updates in flight
// are allowed to finish.
func (a *App) RunPolling(ctx context.Context) error {
	client, b, err := a.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteWebhook(ctx); err != nil {
		a.log.Warn("deleteWebhook", "error", err)
	}

	var servers sync.WaitGroup
	if port := a.cfg.HTTP.Port; port != "" {
		servers.Add(1)
		go func() {
			defer servers.Done()
			if err := a.serve(ctx, port, handler.NewRouter(nil)); err != nil {
				a.log.Error("health server", "error", err)
			}
		}()
	}

	a.log.Info("polling started")
	updates := client.Updates(ctx, pollTimeout)
	queue := bot.NewDispatcher(b, context.WithoutCancel(ctx), updateTimeout)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			queue.Dispatch(u)
		}
	}
	a.log.Info("polling stopped, waiting for in-flight updates")
	queue.Wait()
	servers.Wait()
	return nil
}

// RunWebhook registers WEBHOOK_URL with Telegram, when set, and serves
// updates on PORT until ctx is done.
func (a *App) RunWebhook(ctx context.Context) error {
	client, b, err := a.connect(ctx)
	if err != nil {
		return err
	}
	if url := a.cfg.HTTP.WebhookURL; url != "" {
		if err := client.SetWebhook(ctx, url, a.cfg.HTTP.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		a.log.Info("webhook registered", "url", url)
	} else {
		a.log.Warn("WEBHOOK_URL is empty, expecting the webhook to be set already")
	}

	port := a.cfg.HTTP.Port
	if port == "" {
		port = defaultPort
	}
	return a.serve(ctx, port, handler.NewRouter(handler.NewWebhook(b, a.cfg.HTTP.WebhookSecret)))
}

func (a *App) serve(ctx context.Context, port string, h http.Handler) error {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on :%s: %w", port, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

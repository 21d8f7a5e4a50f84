package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/macrat/sitewatch/internal/endpoint"
	"github.com/macrat/sitewatch/internal/logger"
	"github.com/macrat/sitewatch/internal/monitor"
	"github.com/macrat/sitewatch/internal/store"
)

func (cmd *SitewatchCommand) RunServer(ctx context.Context, s store.Store, m *monitor.Monitor, l *logger.Logger) (exitCode int) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := cmd.Config.ScheduleValue()
	if err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		return 2
	}

	listen := fmt.Sprintf(":%d", cmd.ListenPort)

	extra := map[string]interface{}{
		"url":      fmt.Sprintf("http://localhost:%d/status.txt", cmd.ListenPort),
		"schedule": sched.String(),
		"targets":  m.Targets(),
	}
	if p, ok := s.(interface{ Path() string }); ok {
		extra["database"] = p.Path()
	}
	if cmd.InstanceName != "" {
		extra["instance_name"] = cmd.InstanceName
	}
	l.Info("server", "start sitewatch", extra)

	handler := endpoint.WithBasicAuth(endpoint.New(endpoint.Backend{
		Name:     cmd.InstanceName,
		Schedule: sched.String(),
		Store:    s,
		Logger:   l,
	}), cmd.UserInfo)

	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Run(ctx, sched)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			l.ReportInternalError("server", fmt.Sprintf("failed to shutdown server: %s", err))
		}
	}()

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintln(cmd.ErrStream, err)
		exitCode = 1
	}
	stop()
	wg.Wait()

	l.Info("server", "stop sitewatch", nil)

	return exitCode
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"LicenseOracle-TON/internal/verify"
)

// Server 暴露只读状态接口，供运维侧查询验证记录与智能体名录。
type Server struct {
	addr     string
	pipeline *verify.Pipeline
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, pipeline *verify.Pipeline) *Server {
	return &Server{addr: addr, pipeline: pipeline}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/licenses", s.handleLicenses)
	mux.HandleFunc("/api/v1/licenses/", s.handleLicenseByID)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"status":  "ok",
		"records": s.pipeline.Count(),
	})
}

func (s *Server) handleLicenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.pipeline.AllLicenses())
}

func (s *Server) handleLicenseByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	requesterID := strings.TrimPrefix(r.URL.Path, "/api/v1/licenses/")
	if requesterID == "" {
		http.Error(w, "缺少请求者标识", http.StatusBadRequest)
		return
	}
	record, ok := s.pipeline.LicenseStatus(requesterID)
	if !ok {
		http.Error(w, "未找到验证记录", http.StatusNotFound)
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"current": s.pipeline.Directory().Current(),
		"agents":  s.pipeline.Directory().List(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

package bridgeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"sumobridge/cli/internal/bridgeerr"
	"sumobridge/cli/internal/launchlog"
	"sumobridge/cli/internal/projectname"
	"sumobridge/cli/internal/protocol"
)

type ScriptRequest struct {
	Content     string `json:"content"`
	ProjectName string `json:"projectName"`
}

func (s *Server) registerScriptRoutes() {
	s.mux.HandleFunc("/run-script", s.handleRunScript)
}

func (s *Server) handleRunScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handleNotFound(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		respondBridge(w, http.StatusInternalServerError, BridgeResponse{Message: "failed to read request: " + err.Error()})
		return
	}
	if len(body) > maxRequestBody {
		respondBridge(w, http.StatusRequestEntityTooLarge, BridgeResponse{Message: "script is too large"})
		return
	}
	var req ScriptRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondBridge(w, http.StatusInternalServerError, BridgeResponse{Message: "invalid request body: " + err.Error()})
		return
	}

	entry, err := s.runScript(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if bridgeerr.Is(err, bridgeerr.Validation) {
			status = http.StatusBadRequest
		}
		respondBridge(w, status, BridgeResponse{
			Message:    errorMessage(err),
			LaunchID:   entry.ID,
			ScriptPath: entry.ScriptPath,
		})
		return
	}
	respondBridge(w, http.StatusOK, BridgeResponse{
		Success:    true,
		Message:    fmt.Sprintf("Terminal opened for %s", req.ProjectName),
		LaunchID:   entry.ID,
		ScriptPath: entry.ScriptPath,
	})
}

func validateScriptRequest(req ScriptRequest) error {
	if req.Content == "" && req.ProjectName == "" {
		return bridgeerr.New(bridgeerr.Validation, "content and projectName are required")
	}
	if req.Content == "" {
		return bridgeerr.New(bridgeerr.Validation, "content is required")
	}
	if err := projectname.Validate(req.ProjectName); err != nil {
		return bridgeerr.Wrap(bridgeerr.Validation, "invalid projectName", err)
	}
	return nil
}

// runScript writes the script and opens a terminal for it. Validation
// failures have no side effects; write and spawn outcomes are journaled.
func (s *Server) runScript(ctx context.Context, req ScriptRequest) (launchlog.Entry, error) {
	if err := validateScriptRequest(req); err != nil {
		s.log.Warn("run-script rejected", "project", req.ProjectName, "err", err)
		return launchlog.Entry{}, err
	}
	if s.deps.Scripts == nil || s.deps.Launcher == nil {
		return launchlog.Entry{}, bridgeerr.New(bridgeerr.Spawn, "bridge is not configured to launch scripts")
	}
	entry := launchlog.Entry{ProjectName: req.ProjectName, ContentSize: len(req.Content)}

	path, err := s.deps.Scripts.Write(req.ProjectName, req.Content)
	entry.ScriptPath = path
	if err != nil {
		err = bridgeerr.Wrap(bridgeerr.IO, "failed to write script", err)
		return s.finish(entry, err), err
	}

	launchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.LaunchTimeout)
	defer cancel()
	if err := s.deps.Launcher.Launch(launchCtx, path); err != nil {
		err = bridgeerr.Wrap(bridgeerr.Spawn, "failed to open terminal", err)
		return s.finish(entry, err), err
	}
	return s.finish(entry, nil), nil
}

func (s *Server) finish(entry launchlog.Entry, err error) launchlog.Entry {
	op := protocol.OpScriptLaunched
	entry.Status = launchlog.StatusLaunched
	if err != nil {
		op = protocol.OpScriptFailed
		entry.Status = launchlog.StatusFailed
		entry.ErrorKind = string(bridgeerr.KindOf(err))
		entry.Message = errorMessage(err)
		s.log.Error("run-script failed", "project", entry.ProjectName, "script", entry.ScriptPath, "kind", entry.ErrorKind, "err", err)
	} else {
		s.log.Info("terminal opened", "project", entry.ProjectName, "script", entry.ScriptPath)
	}
	if s.deps.Journal != nil {
		stored, jerr := s.deps.Journal.Record(entry)
		if jerr != nil {
			s.log.Warn("launch journal write failed", "err", jerr)
		} else {
			entry = stored
		}
	}
	s.hub.Publish(op, entry)
	return entry
}

func errorMessage(err error) string {
	var e *bridgeerr.E
	if errors.As(err, &e) {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	return err.Error()
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/auth"
	"github.com/stevecastle/recon3d/cache"
	"github.com/stevecastle/recon3d/imageio"
	"github.com/stevecastle/recon3d/pointcloud"
	"github.com/stevecastle/recon3d/projection"
	"github.com/stevecastle/recon3d/reconstruct"
)

type reconstructResponse struct {
	Success bool               `json:"success"`
	Data    reconstruct.Result `json:"data"`
	Message string             `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func healthHandler(deps *Dependencies, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg := deps.Service.Registry()
		available := reg.Available()
		if available == nil {
			available = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"models":           reg.Describe(),
			"models_available": available,
			"depth_estimator":  opts.DepthEstimator,
			"result_cache":     deps.Results != nil,
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func reconstructHandler(deps *Dependencies, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := deps.Logger.With(zap.String("request_id", RequestIDFrom(r.Context())))
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
				return
			}
			writeError(w, http.StatusBadRequest, "expected multipart form data")
			return
		}
		defer r.MultipartForm.RemoveAll()

		mode, err := reconstruct.ParseMode(r.FormValue("model_type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		files := r.MultipartForm.File["images"]
		if len(files) == 0 {
			writeError(w, http.StatusBadRequest, reconstruct.ErrNoImages.Error())
			return
		}

		raw := make([][]byte, 0, len(files))
		images := make([]projection.ColorImage, 0, len(files))
		for i, fh := range files {
			data, err := readPart(fh)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("read image %d: %v", i, err))
				return
			}
			img, err := imageio.Load(bytes.NewReader(data), opts.ImageSize)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("image %d (%s): %v", i, fh.Filename, err))
				return
			}
			raw = append(raw, data)
			images = append(images, img)
		}

		key := cache.ResultKey(string(mode), raw)
		result, err := deps.Results.Get(r.Context(), key)
		if err != nil {
			log.Warn("Result cache read failed", zap.Error(err))
		}
		if result == nil {
			res, err := deps.Service.Reconstruct(r.Context(), mode, images)
			if err != nil {
				log.Error("Reconstruction failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "reconstruction failed")
				return
			}
			result = res
			if err := deps.Results.Set(r.Context(), key, result); err != nil {
				log.Warn("Result cache write failed", zap.Error(err))
			}
		}

		if r.URL.Query().Get("format") == "pcd" {
			writePCD(w, reconstruct.Result(result), r.URL.Query().Get("model"))
			return
		}
		writeJSON(w, http.StatusOK, reconstructResponse{
			Success: true,
			Data:    result,
			Message: "Reconstruction complete",
		})
	}
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writePCD streams one model's cloud as an ASCII PCD attachment.
func writePCD(w http.ResponseWriter, result reconstruct.Result, model string) {
	if model == "" && len(result) == 1 {
		for name := range result {
			model = name
		}
	}
	env, ok := result[model]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("model %q not in result", model))
		return
	}
	pc, err := env.Cloud()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := pointcloud.WritePCD(pc, &buf, pointcloud.PCDAscii); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pcd"`, model))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Auth == nil {
			writeError(w, http.StatusNotFound, "authentication is disabled")
			return
		}
		var req loginRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		token, err := deps.Auth.Login(r.Context(), req.Username, req.Password)
		if errors.Is(err, auth.ErrInvalidCreds) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		} else if err != nil {
			deps.Logger.Error("Login failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
	}
}

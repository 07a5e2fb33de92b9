package routes

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	diffimage "lcs-image-diff/internal/diff/image"
	difftext "lcs-image-diff/internal/diff/text"
	"lcs-image-diff/internal/myhttp"
	"lcs-image-diff/internal/source"
	"mime/multipart"
	"net/http"
	"strconv"
)

const maxMemory = 32 << 20

type RowCounts struct {
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Added     int `json:"added"`
}

type DiffResponse struct {
	DiffData     string     `json:"diffData"`
	BaselineData string     `json:"baselineData,omitempty"`
	TargetData   string     `json:"targetData,omitempty"`
	DiffAmount   float64    `json:"diffAmount"`
	Rows         *RowCounts `json:"rows,omitempty"`
}

type RatioResponse struct {
	DiffAmount float64 `json:"diffAmount"`
}

var errBadRequest = errors.New("bad request")

// Diff serves POST /diff. The multipart form carries the baseline and target
// files, an optional format (lcs, line or dom) and, for lcs, a tint rate.
// Images over limits, and texts with more lines or nodes than
// limits.MaxRows, are rejected with 400.
func Diff(metrics *Metrics, limits source.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baselineData, targetData, err := readPair(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		format := r.FormValue("format")
		if format == "" {
			format = "lcs"
		}

		switch format {
		case "lcs":
			rate := diffimage.DefaultRate
			if v := r.FormValue("rate"); v != "" {
				rate, err = strconv.ParseFloat(v, 64)
				if err != nil || rate < 0 || rate > 1 {
					http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
					return
				}
			}

			baselineImage, targetImage, err := decodePair(limits, baselineData, targetData)
			if err != nil {
				writeError(w, r, err)
				return
			}

			diffResult := diffimage.NewLCSDiff(rate).Calculate(baselineImage, targetImage)

			response := DiffResponse{
				DiffAmount: diffResult.DiffAmount,
				Rows: &RowCounts{
					Unchanged: diffResult.Unchanged,
					Removed:   diffResult.Removed,
					Added:     diffResult.Added,
				},
			}
			for _, entry := range []struct {
				image image.Image
				out   *string
			}{
				{diffResult.Image, &response.DiffData},
				{diffResult.Baseline, &response.BaselineData},
				{diffResult.Target, &response.TargetData},
			} {
				if *entry.out, err = encodePNG(entry.image); err != nil {
					writeError(w, r, err)
					return
				}
			}

			metrics.recordAmount(r.Context(), format, response.DiffAmount)
			metrics.recordRows(r.Context(), *response.Rows)
			myhttp.WriteJSON(r.Context(), w, http.StatusOK, response)

		case "line", "dom":
			var differ difftext.Differ = &difftext.LineDiff{MaxTokens: limits.MaxRows}
			if format == "dom" {
				differ = &difftext.DOMDiff{MaxTokens: limits.MaxRows}
			}

			diffResult, err := differ.Calculate(baselineData, targetData)
			if err != nil {
				writeError(w, r, err)
				return
			}

			metrics.recordAmount(r.Context(), format, diffResult.DiffAmount)
			myhttp.WriteJSON(r.Context(), w, http.StatusOK, DiffResponse{
				DiffData:   base64.StdEncoding.EncodeToString(diffResult.Diff),
				DiffAmount: diffResult.DiffAmount,
			})

		default:
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
	}
}

// Ratio serves POST /ratio, the divergence ratio alone.
func Ratio(metrics *Metrics, limits source.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baselineData, targetData, err := readPair(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		baselineImage, targetImage, err := decodePair(limits, baselineData, targetData)
		if err != nil {
			writeError(w, r, err)
			return
		}

		amount := diffimage.DivergenceRatio(baselineImage, targetImage)
		metrics.recordAmount(r.Context(), "ratio", amount)
		myhttp.WriteJSON(r.Context(), w, http.StatusOK, RatioResponse{
			DiffAmount: amount,
		})
	}
}

func readPair(r *http.Request) ([]byte, []byte, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, nil, errors.Join(errBadRequest, err)
	}

	baselineData, err := readFormFile(r, "baseline")
	if err != nil {
		return nil, nil, err
	}
	targetData, err := readFormFile(r, "target")
	if err != nil {
		return nil, nil, err
	}
	return baselineData, targetData, nil
}

func readFormFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, errors.Join(errBadRequest, err)
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	return io.ReadAll(file)
}

func decodePair(limits source.Limits, baselineData []byte, targetData []byte) (image.Image, image.Image, error) {
	baselineImage, _, err := limits.Decode(baselineData)
	if err != nil {
		return nil, nil, errors.Join(errBadRequest, err)
	}
	targetImage, _, err := limits.Decode(targetData)
	if err != nil {
		return nil, nil, errors.Join(errBadRequest, err)
	}
	return baselineImage, targetImage, nil
}

func encodePNG(img image.Image) (string, error) {
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buffer.Bytes()), nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadRequest) || errors.Is(err, difftext.TooManyTokensError) {
		myhttp.Logger(r.Context()).Debug("rejected request", "error", err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	myhttp.Logger(r.Context()).Error("failed to compute diff", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

//nolint:gochecknoglobals // Namespace for name-based evidence ids
var evidenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/nikogura/penalty-matrix/evidence"))

// batch is the object form of an input file.
type batch struct {
	Violations *[]Detection `json:"violations"`
}

// Load reads violations from a file path or an http(s) URL.
func Load(ctx context.Context, input string, timeout time.Duration) (detections []Detection, err error) {
	var data []byte

	parsedURL, urlErr := url.Parse(input)
	if urlErr == nil && (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") {
		data, err = fetchFromURL(ctx, input, timeout)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch violations from URL: %s", input)
			return detections, err
		}
	} else {
		data, err = fetchFromFile(input)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch violations from file: %s", input)
			return detections, err
		}
	}

	detections, err = Decode(data)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode violations: %s", input)
		return detections, err
	}

	return detections, err
}

// Decode parses either a JSON array of detections or an object with a
// "violations" array, and assigns ids to evidence items that lack one.
func Decode(data []byte) (detections []Detection, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		err = errors.New("violations input is empty")
		return detections, err
	}

	if trimmed[0] == '{' {
		var b batch
		err = json.Unmarshal(trimmed, &b)
		if err != nil {
			err = errors.Wrap(err, "failed to parse violations object")
			return detections, err
		}
		if b.Violations == nil {
			err = errors.New("violations object has no violations array")
			return detections, err
		}
		detections = *b.Violations
	} else {
		err = json.Unmarshal(trimmed, &detections)
		if err != nil {
			err = errors.Wrap(err, "failed to parse violations array")
			return detections, err
		}
	}

	if detections == nil {
		detections = []Detection{}
	}

	AssignIDs(detections)

	return detections, err
}

// AssignIDs fills in missing evidence ids with name-based UUIDs so repeated
// loads of the same input produce the same ids.
func AssignIDs(detections []Detection) {
	for i := range detections {
		d := &detections[i]
		for j := range d.Evidence {
			if d.Evidence[j].ID != "" {
				continue
			}
			d.Evidence[j].ID = ItemID(d.Document, d.ViolationFlag, j, d.Evidence[j].ExactQuote)
		}
	}
}

// ItemID derives a deterministic evidence id.
func ItemID(document, violationFlag string, index int, quote string) (id string) {
	name := document + "\x00" + violationFlag + "\x00" + strconv.Itoa(index) + "\x00" + quote
	id = uuid.NewSHA1(evidenceNamespace, []byte(name)).String()
	return id
}

// fetchFromFile reads violations from disk.
func fetchFromFile(path string) (data []byte, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read file: %s", path)
		return data, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		err = errors.New("file is empty")
		return data, err
	}

	return data, err
}

// fetchFromURL retrieves violations published by a collector over HTTP.
func fetchFromURL(ctx context.Context, urlStr string, timeout time.Duration) (data []byte, err error) {
	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return data, err
	}

	req.Header.Set("User-Agent", "penalty-matrix/1.0")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{
		Timeout: timeout,
	}

	var resp *http.Response
	resp, err = client.Do(req)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return data, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("HTTP request failed with status: %d", resp.StatusCode)
		return data, err
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return data, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		err = errors.New("fetched content is empty")
		return data, err
	}

	return data, err
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GenerateVideo submits a video job for the selected cover, polls its
// completion status on a fixed interval and downloads the resulting MP4
// through an authenticated URL. The whole attempt runs under the same
// permission-retry guard as image generation. Polling has no ceiling of
// its own; the caller's context bounds a stuck remote job.
func (c *Client) GenerateVideo(ctx context.Context, imageDataURL, prompt string) ([]byte, error) {
	video, err := c.generateVideo(ctx, imageDataURL, prompt)
	return resolve(c, "generate_video", FailOnFailure, video, nil, err)
}

func (c *Client) generateVideo(ctx context.Context, imageDataURL, prompt string) ([]byte, error) {
	inline, ok := dataURLToBlob(imageDataURL, "image/png")
	if !ok {
		return nil, errors.New("invalid cover image data")
	}

	var video []byte
	err := c.guard.Run(ctx, func(ctx context.Context) error {
		name, err := c.submitVideoJob(ctx, prompt, inline)
		if err != nil {
			return err
		}

		uri, err := c.awaitVideoJob(ctx, name)
		if err != nil {
			return err
		}

		data, err := c.downloadVideo(ctx, uri)
		if err != nil {
			return err
		}
		video = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return video, nil
}

func (c *Client) submitVideoJob(ctx context.Context, prompt string, image blob) (string, error) {
	payload := videoJobRequest{
		Instances: []videoInstance{
			{Prompt: prompt, Image: &image},
		},
		Parameters: videoParameters{AspectRatio: "16:9"},
	}

	url := fmt.Sprintf("%s/%s/models/%s:predictLongRunning", c.baseURL, c.apiVersion, modelVideo)

	var op videoOperation
	if err := c.postJSON(ctx, url, payload, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", errors.New("video job has no operation name")
	}
	return op.Name, nil
}

func (c *Client) awaitVideoJob(ctx context.Context, name string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimPrefix(name, "/"))

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var op videoOperation
		if err := c.getJSON(ctx, url, &op); err != nil {
			return "", err
		}

		if op.Done {
			if op.Error != nil {
				return "", &APIError{Status: op.Error.Code, Body: op.Error.Message}
			}
			uri := videoURI(op)
			if uri == "" {
				return "", errors.New("video job finished without a result")
			}
			return uri, nil
		}

		c.logger.Debug("video job pending", "operation", name)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) downloadVideo(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return io.ReadAll(resp.Body)
}

func videoURI(op videoOperation) string {
	if op.Response == nil || op.Response.GenerateVideoResponse == nil {
		return ""
	}
	for _, sample := range op.Response.GenerateVideoResponse.GeneratedSamples {
		if sample.Video != nil && sample.Video.URI != "" {
			return sample.Video.URI
		}
	}
	return ""
}

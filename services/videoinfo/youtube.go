package videoinfosvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type youtubeService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  core.Logger
}

var _ course.DurationProvider = (*youtubeService)(nil)

func NewYoutubeService(conf *core.Config, logger core.Logger) *youtubeService {
	return &youtubeService{
		baseURL: conf.VideoInfo.BaseURL,
		apiKey:  conf.VideoInfo.APIKey,
		client:  &http.Client{Timeout: conf.VideoInfo.Timeout},
		logger:  logger,
	}
}

type videoListResponse struct {
	Items []struct {
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// GetContentDuration queries the provider's videos endpoint for the raw
// PT#H#M#S duration of externalID. An empty item list means the id is
// unknown to the provider and maps to course.ErrContentNotFound.
func (svc youtubeService) GetContentDuration(ctx context.Context, externalID string) (string, error) {
	q := make(url.Values)
	q.Set("id", externalID)
	q.Set("key", svc.apiKey)
	q.Set("part", "contentDetails")
	u := svc.baseURL + "/videos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "building videos request")
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "querying videos endpoint")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("videos endpoint replied %d", res.StatusCode)
	}

	var payload videoListResponse
	if err = json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decoding videos response")
	}
	if len(payload.Items) == 0 {
		return "", course.ErrContentNotFound
	}

	dur := payload.Items[0].ContentDetails.Duration
	svc.logger.Debug(fmt.Sprintf("video %s: provider duration %q", externalID, dur))
	return dur, nil
}

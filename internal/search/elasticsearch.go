package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient indexes and searches solution cards in Elasticsearch
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// Disabled returns a client that is never called
func Disabled() *ElasticClient {
	return &ElasticClient{enabled: false}
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// Enabled reports whether cards are indexed
func (c *ElasticClient) Enabled() bool {
	return c.enabled
}

// cardDocument is the indexed form of a card with the fields queried on lifted to the top level
type cardDocument struct {
	*models.SolutionCard
	Item        string              `json:"item"`
	Quantity    int                 `json:"quantity"`
	EstTimeMins int                 `json:"est_time_mins"`
	Weather     models.WeatherClass `json:"weather"`
}

// IndexSolutionCard indexes a saved card under its id
func (c *ElasticClient) IndexSolutionCard(ctx context.Context, card *models.SolutionCard) error {
	if !c.enabled {
		return nil
	}

	payload := card.Payload.Data()
	doc, err := json.Marshal(cardDocument{
		SolutionCard: card,
		Item:         payload.RequestDetails.Item,
		Quantity:     payload.Recommendation.Quantity,
		EstTimeMins:  payload.Recommendation.Logistics.EstTimeMins,
		Weather:      payload.Recommendation.Logistics.Weather,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal solution card document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: card.ID.String(),
		Body:       bytes.NewReader(doc),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index", res)
	}

	log.Debug().Str("card_id", card.ID.String()).Msg("Solution card indexed")
	return nil
}

// SearchSolutionCards returns the newest indexed cards where the facility is donor or requestor
func (c *ElasticClient) SearchSolutionCards(ctx context.Context, facilityID string, limit int) ([]models.SolutionCard, error) {
	if !c.enabled {
		return nil, errors.New("elasticsearch is disabled")
	}

	query := map[string]interface{}{
		"size": limit,
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"term": map[string]string{"from_facility.keyword": facilityID}},
					map[string]interface{}{"term": map[string]string{"to_facility.keyword": facilityID}},
				},
				"minimum_should_match": 1,
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, c.config.Index)},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	cards := make([]models.SolutionCard, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var card models.SolutionCard
		if err := json.Unmarshal(hit.Source, &card); err != nil {
			log.Warn().Err(err).Msg("Skipping unreadable solution card document")
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func responseError(op string, res *esapi.Response) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Wrapf(err, "failed to parse Elasticsearch %s error response", op)
	}
	return errors.Errorf("Elasticsearch %s error: %v", op, e)
}

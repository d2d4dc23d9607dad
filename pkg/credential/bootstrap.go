package credential

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bootstrapConfig holds the identity fields embedded in the bootstrap page.
type bootstrapConfig struct {
	CSRFToken string `json:"csrf_token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

// extractBootstrapConfig parses the backend bootstrap page and returns the
// configuration blob embedded in the data-conf attribute. This is the only
// place the gateway depends on the backend's undocumented HTML contract, so
// it stays a narrow pure function testable with literal fixtures.
//
// Returns false when no data-conf attribute exists, the JSON does not parse,
// or the blob carries no CSRF token.
func extractBootstrapConfig(html string) (bootstrapConfig, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return bootstrapConfig{}, false
	}

	raw, exists := doc.Find("[data-conf]").First().Attr("data-conf")
	if !exists {
		return bootstrapConfig{}, false
	}

	var conf bootstrapConfig
	if err := json.Unmarshal([]byte(raw), &conf); err != nil {
		return bootstrapConfig{}, false
	}
	if conf.CSRFToken == "" {
		return bootstrapConfig{}, false
	}

	return conf, true
}

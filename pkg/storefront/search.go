package storefront

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/BartekS5/steampulse/pkg/models"
)

const appIDAttr = "data-ds-appid"

// SearchPage fetches one page of the top-reviewed games search and returns the raw
// identifier tokens in page order. A row may carry several comma-separated ids (bundles).
func (c *Client) SearchPage(ctx context.Context, page int) ([]string, error) {
	q := url.Values{}
	q.Set("sort_by", "Reviews_DESC")
	q.Set("category1", "998")
	q.Set("page", strconv.Itoa(page))
	u := c.storeBase + "/search/?" + q.Encode()

	body, status, err := c.doGET(ctx, u, "text/html")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Code: status, URL: u}
	}

	return ExtractAppIDTokens(body)
}

// ExtractAppIDTokens collects every data-ds-appid value in document order.
func ExtractAppIDTokens(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse search page: %v", models.ErrFormat, err)
	}

	var tokens []string
	doc.Find("[" + appIDAttr + "]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr(appIDAttr)
		for _, tok := range strings.Split(raw, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	})

	return tokens, nil
}

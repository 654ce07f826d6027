// Package icm crawls user comment listings on icheckmovies.com.
package icm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	icmhttp "github.com/monk-time/icm-dead-video-links/http"
)

// ErrUserNotFound indicates the requested user does not exist on the site.
// The site signals this by redirecting the comment listing to its login
// page. Non-fatal: the user simply has nothing to crawl.
var ErrUserNotFound = errors.New("icm: user not found")

// Comment is one comment read from a user's profile. Login-wall
// placeholders are excluded before this type is produced, so Movie is
// always a site-relative movie path like "/movies/halloween/".
type Comment struct {
	Movie string
	Text  string
}

// Client fetches and parses site pages.
type Client struct {
	http    *icmhttp.Client
	baseURL string
	log     *zap.Logger
}

// NewClient creates a site client on top of the shared HTTP client.
func NewClient(httpClient *icmhttp.Client, baseURL string, log *zap.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// UserCommentsURL returns the public URL of a user's comment listing,
// used as the backlink in report block headers.
func (c *Client) UserCommentsURL(user string) string {
	return c.baseURL + "/profiles/comments/?user=" + url.QueryEscape(user)
}

// MovieCommentsURL returns the public URL of a movie's comment listing
// for a site-relative movie path.
func (c *Client) MovieCommentsURL(moviePath string) string {
	return c.baseURL + moviePath + "comments/"
}

func (c *Client) commentsPageURL(user string, page int) string {
	u := c.UserCommentsURL(user)
	if page > 1 {
		u += "&page=" + strconv.Itoa(page)
	}
	return u
}

// PageCount returns the total number of comment pages of a user.
// It returns (0, ErrUserNotFound) when the site redirects to its login
// page, and (0, err) when the first page cannot be fetched or parsed.
// Zero means "nothing to crawl"; callers must check it before looping.
func (c *Client) PageCount(ctx context.Context, user string) (int, error) {
	resp, err := c.http.Get(ctx, c.commentsPageURL(user, 1))
	if err != nil {
		return 0, fmt.Errorf("first page of %s's comments: %w", user, err)
	}
	if strings.Contains(resp.URL, "/login/") {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return 0, fmt.Errorf("parse first page of %s's comments: %w", user, err)
	}

	paginator := doc.Find(".pages li a")
	if paginator.Length() > 0 {
		last := strings.TrimSpace(paginator.Last().Text())
		n, err := strconv.Atoi(last)
		if err != nil {
			return 0, fmt.Errorf("parse paginator of %s's comments: %w", user, err)
		}
		return n, nil
	}
	if doc.Find(".comment").Length() == 0 {
		return 0, nil
	}
	return 1, nil
}

// Page fetches one page of a user's comments. Comments that are empty
// "please log in" placeholders are excluded structurally (a direct
// highlightBlock child) before being handed back.
func (c *Client) Page(ctx context.Context, user string, page int) ([]Comment, error) {
	resp, err := c.http.Get(ctx, c.commentsPageURL(user, page))
	if err != nil {
		return nil, fmt.Errorf("page #%d of %s's comments: %w", page, user, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page #%d of %s's comments: %w", page, user, err)
	}

	var comments []Comment
	doc.Find(".comment").Each(func(_ int, s *goquery.Selection) {
		if s.ChildrenFiltered(".highlightBlock").Length() > 0 {
			return
		}
		movie, ok := s.Find(".link a").First().Attr("href")
		if !ok {
			return
		}
		text := s.Find(".span-18 > span").First().Text()
		comments = append(comments, Comment{Movie: movie, Text: text})
	})
	return comments, nil
}

// Range yields the comments of pages [from, to] inclusive, in page order.
// A page is fetched only as its comments are consumed. Page-level fetch
// failures are logged and skipped; they degrade to "no comments for this
// page" so a single bad page does not abort the user.
func (c *Client) Range(ctx context.Context, user string, from, to int) iter.Seq[Comment] {
	return func(yield func(Comment) bool) {
		for page := from; page <= to; page++ {
			if ctx.Err() != nil {
				return
			}
			c.log.Info("checking comments page",
				zap.String("user", user), zap.Int("page", page))
			comments, err := c.Page(ctx, user, page)
			if err != nil {
				c.log.Error("fetch comments page failed",
					zap.String("user", user), zap.Int("page", page), zap.Error(err))
				continue
			}
			for _, comment := range comments {
				if !yield(comment) {
					return
				}
			}
		}
	}
}

// chartPageSize is how many profiles one chart page lists.
const chartPageSize = 25

// TopUsers returns the usernames at chart positions [first, last]
// inclusive (1-based) from the profile charts, or from the
// all-checks-sorted listing when byAllChecks is set. Unlike per-user page
// fetches, a failure here is returned: the batch has no user list to
// work with.
func (c *Client) TopUsers(ctx context.Context, first, last int, byAllChecks bool) ([]string, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("invalid chart positions %d..%d", first, last)
	}
	listURL := c.baseURL + "/charts/profiles/"
	if byAllChecks {
		listURL = c.baseURL + "/profiles/?sort=checks"
	}

	firstPage := (first-1)/chartPageSize + 1
	lastPage := (last-1)/chartPageSize + 1

	var users []string
	for page := firstPage; page <= lastPage; page++ {
		resp, err := c.http.Get(ctx, withPageParam(listURL, page))
		if err != nil {
			return nil, fmt.Errorf("page #%d of user charts: %w", page, err)
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			return nil, fmt.Errorf("parse page #%d of user charts: %w", page, err)
		}
		doc.Find(".listItemProfile h2 a").Each(func(_ int, s *goquery.Selection) {
			users = append(users, strings.TrimSpace(s.Text()))
		})
	}

	// Trim the surrounding chart-page remainder down to the requested
	// positions.
	offset := first - (firstPage-1)*chartPageSize - 1
	if offset > len(users) {
		return nil, nil
	}
	users = users[offset:]
	if n := last - first + 1; len(users) > n {
		users = users[:n]
	}
	return users, nil
}

// withPageParam adds or replaces the page query parameter of a URL.
func withPageParam(rawURL string, page int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/haasonsaas/wolo/internal/errdefs"
)

const webfetchBodyLimit = 2 * 1024 * 1024

// WebFetchSpec fetches a URL and converts the body to the requested
// format.
func WebFetchSpec() *Spec {
	return &Spec{
		Name:        "webfetch",
		Description: "Fetch a URL. format: text strips markup, markdown keeps structure, html returns raw HTML.",
		Category:    "web",
		Icon:        "🌐",
		Schema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "URL to fetch (http or https).",
				},
				"format": map[string]any{
					"type": "string",
					"enum": []string{"text", "markdown", "html"},
				},
			},
			"required": []string{"url", "format"},
		}),
		Brief: func(input map[string]any) string {
			return "fetch " + stringParam(input, "url")
		},
		Handler: webfetchHandler,
	}
}

func webfetchHandler(ctx context.Context, _ *Env, input map[string]any) (*Result, error) {
	url := stringParam(input, "url")
	format := stringParam(input, "format")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, errdefs.Tool("url must be http or https: %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errdefs.WrapTool("webfetch", err)
	}
	req.Header.Set("User-Agent", "wolo/1.0")
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errdefs.WrapTool("webfetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errdefs.Tool("fetch %s: status %d", url, resp.StatusCode).
			WithType(errdefs.TypeHTTPError).
			WithContext("status", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, webfetchBodyLimit))
	if err != nil {
		return nil, errdefs.WrapTool("webfetch", err)
	}

	contentType := resp.Header.Get("Content-Type")
	var output string
	switch {
	case format == "html" || !strings.Contains(contentType, "text/html"):
		output = string(body)
	case format == "markdown":
		output = htmlToMarkdown(string(body))
	default:
		output = htmlToText(string(body))
	}

	meta := map[string]any{
		"url":          url,
		"status":       resp.StatusCode,
		"content_type": contentType,
		"bytes":        len(body),
	}
	return &Result{
		Title:    url,
		Output:   truncateOutput(output, meta),
		Metadata: meta,
	}, nil
}

// htmlToText extracts visible text, dropping script and style bodies.
func htmlToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}
	var sb strings.Builder
	walkText(doc, &sb, false)
	return collapseBlankLines(sb.String())
}

// htmlToMarkdown is a light conversion: headings, links, list items, and
// paragraphs. Enough for documentation pages; not a full renderer.
func htmlToMarkdown(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}
	var sb strings.Builder
	walkMarkdown(doc, &sb)
	return collapseBlankLines(sb.String())
}

func walkText(n *html.Node, sb *strings.Builder, skip bool) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head":
			skip = true
		case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
			sb.WriteString("\n")
		}
	}
	if n.Type == html.TextNode && !skip {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, sb, skip)
	}
}

func walkMarkdown(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "head":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			sb.WriteString("\n" + strings.Repeat("#", level) + " " + innerText(n) + "\n")
			return
		case "a":
			href := attr(n, "href")
			text := innerText(n)
			if href != "" && text != "" {
				fmt.Fprintf(sb, "[%s](%s)", text, href)
				return
			}
		case "li":
			sb.WriteString("\n- ")
		case "p", "div", "br", "tr":
			sb.WriteString("\n")
		case "code", "pre":
			sb.WriteString("`" + innerText(n) + "`")
			return
		}
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkMarkdown(c, sb)
	}
}

func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " ")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

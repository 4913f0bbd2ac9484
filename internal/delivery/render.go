// Package delivery renders the digest as an HTML email and sends it
// over SMTP with the screenshots embedded inline.
package delivery

import (
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/digest"
)

// InlineImage is a screenshot referenced from the HTML body by its
// Content-ID.
type InlineImage struct {
	CID  string
	Path string
}

type emailPost struct {
	Title    string
	URL      string
	Snippet  string
	Category string
	// ScreenshotSrc is the cid: reference, pre-marked as a safe URL so
	// the template does not reject the scheme. Empty when the post has
	// no usable screenshot.
	ScreenshotSrc template.URL
}

type emailSection struct {
	Category string
	Posts    []emailPost
}

type emailData struct {
	TotalPosts int
	Date       string
	Sections   []emailSection
}

const emailTmpl = `<html>
<head>
<style>
  body { font-family: 'Segoe UI', Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
  .container { max-width: 800px; margin: 0 auto; background: #ffffff; border-radius: 12px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
  .header { background: linear-gradient(135deg, #0077B5, #00A0DC); color: white; padding: 24px 32px; }
  .header h1 { margin: 0; font-size: 22px; font-weight: 600; }
  .header p { margin: 8px 0 0; opacity: 0.9; font-size: 14px; }
  .content { padding: 24px 32px; }
  .category { margin-bottom: 32px; }
  .category h2 { color: #0077B5; font-size: 18px; border-bottom: 2px solid #e8e8e8; padding-bottom: 8px; margin-bottom: 16px; }
  .post-card { border: 1px solid #e8e8e8; border-radius: 8px; margin-bottom: 16px; overflow: hidden; }
  .post-info { padding: 16px; }
  .post-title { font-size: 15px; font-weight: 600; color: #333; margin: 0 0 8px; }
  .post-title a { color: #0077B5; text-decoration: none; }
  .post-title a:hover { text-decoration: underline; }
  .post-snippet { font-size: 13px; color: #666; line-height: 1.5; margin: 0; }
  .post-screenshot { padding: 0 16px 16px; }
  .post-screenshot img { width: 100%; border-radius: 4px; border: 1px solid #e8e8e8; }
  .footer { background: #f9f9f9; padding: 16px 32px; text-align: center; color: #999; font-size: 12px; }
  .badge { display: inline-block; background: #e7f3ff; color: #0077B5; padding: 2px 10px; border-radius: 12px; font-size: 12px; font-weight: 600; margin-bottom: 8px; }
  .no-results { color: #999; font-style: italic; padding: 8px 0; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>&#128269; LinkedIn Keyword Monitor</h1>
      <p>ADOR Digatron &mdash; {{.TotalPosts}} posts found on {{.Date}}</p>
    </div>
    <div class="content">
{{- if eq .TotalPosts 0}}
      <p class="no-results">
        No new LinkedIn posts found matching your keywords this period.
        This can happen when posts are not publicly visible or
        the search didn't return results for the current time window.
      </p>
{{- else}}
{{- range .Sections}}
      <div class="category">
        <h2>{{.Category}}</h2>
{{- if not .Posts}}
        <p class="no-results">No posts found in this category.</p>
{{- end}}
{{- range .Posts}}
        <div class="post-card">
          <div class="post-info">
            <span class="badge">{{.Category}}</span>
            <p class="post-title">
              <a href="{{.URL}}" target="_blank">{{.Title}}</a>
            </p>
            <p class="post-snippet">{{.Snippet}}</p>
          </div>
{{- if .ScreenshotSrc}}
          <div class="post-screenshot">
            <img src="{{.ScreenshotSrc}}" alt="Post screenshot" />
          </div>
{{- end}}
        </div>
{{- end}}
      </div>
{{- end}}
{{- end}}
    </div>
    <div class="footer">
      Automated by LinkedIn Keyword Monitor for ADOR Digatron<br/>
      <a href="https://adordigatron.com" style="color: #0077B5;">adordigatron.com</a>
    </div>
  </div>
</body>
</html>
`

var emailTemplate = template.Must(template.New("digestEmail").Parse(emailTmpl))

// hasScreenshot reports whether an artifact produced an image worth
// embedding.
func hasScreenshot(a capture.Artifact) bool {
	if a.Path == "" {
		return false
	}
	if a.Status != capture.StatusOK && a.Status != capture.StatusLoginWallDismissed {
		return false
	}
	_, err := os.Stat(a.Path)
	return err == nil
}

// Render builds the HTML body for a digest and the inline images it
// references. CIDs are assigned in render order, matching the order
// the images are embedded in the message.
func Render(d *digest.Digest) (string, []InlineImage, error) {
	data := emailData{
		TotalPosts: d.TotalPosts(),
		Date:       d.GeneratedAt.Format("January 02, 2006"),
	}

	var images []InlineImage
	for _, section := range d.Sections {
		es := emailSection{Category: section.Category}
		for _, entry := range section.Entries {
			post := emailPost{
				Title:    entry.Post.Title,
				URL:      entry.Post.URL,
				Snippet:  entry.Post.Snippet,
				Category: section.Category,
			}
			if hasScreenshot(entry.Artifact) {
				cid := fmt.Sprintf("screenshot_%d", len(images))
				images = append(images, InlineImage{CID: cid, Path: entry.Artifact.Path})
				post.ScreenshotSrc = template.URL("cid:" + cid)
			}
			es.Posts = append(es.Posts, post)
		}
		data.Sections = append(data.Sections, es)
	}

	var sb strings.Builder
	if err := emailTemplate.Execute(&sb, data); err != nil {
		return "", nil, fmt.Errorf("failed to render digest email: %w", err)
	}

	return sb.String(), images, nil
}

// Subject builds the digest subject line the way the monitor always
// has: prefix, post count, run date.
func Subject(prefix string, totalPosts int, now time.Time) string {
	return fmt.Sprintf("%s — %d posts found (%s)", prefix, totalPosts, now.UTC().Format("2006-01-02"))
}

package fetch

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ATS is an applicant tracking system whose hosted pages need their own selectors.
type ATS string

const (
	ATSNone       ATS = ""
	ATSGreenhouse ATS = "greenhouse"
	ATSLever      ATS = "lever"
	ATSWorkday    ATS = "workday"
)

// profile lists where a site keeps its readable text and what to strip first.
type profile struct {
	content []string
	noise   []string
}

// alwaysNoise is removed from every page before extraction.
const alwaysNoise = "nav, footer, header, script, style, noscript, iframe, svg, " +
	".ad, .ads, .advertisement, .sidebar, .popup, .modal"

// formNoise covers application forms, EEO blurbs, share widgets and consent banners.
var formNoise = []string{
	"form", "#application-form", ".application-form", ".apply-button-container",
	".eeo-statement", ".eeo-section", ".voluntary-disclosure", ".self-identification",
	".social-share", ".share-buttons",
	".cookie-banner", ".cookie-consent", ".gdpr-notice",
}

var profiles = map[ATS]profile{
	ATSNone: {
		content: []string{
			"main", "article", "[role='main']",
			".about-content", ".about", "#about",
			".careers", "#careers", ".job-description",
			".content", "#content", ".main-content",
		},
		noise: formNoise,
	},
	ATSGreenhouse: {
		content: []string{".job__description", ".job-post-container", "#content"},
		noise:   append([]string{".application--wrapper", ".voluntary-self-id", "#usa_self_id_section"}, formNoise...),
	},
	ATSLever: {
		content: []string{".posting-page", ".posting-description", ".content"},
		noise:   append([]string{".apply-section", ".posting-apply"}, formNoise...),
	},
	ATSWorkday: {
		content: []string{"[data-automation-id='jobDescription']", ".job-description"},
		noise:   append([]string{"[data-automation-id='applyButton']"}, formNoise...),
	},
}

// DetectATS reports which tracking system hosts urlStr, if any.
func DetectATS(urlStr string) ATS {
	host := Host(urlStr)
	switch {
	case strings.HasSuffix(host, "greenhouse.io"):
		return ATSGreenhouse
	case strings.HasSuffix(host, "lever.co"):
		return ATSLever
	case strings.HasSuffix(host, "myworkdayjobs.com"), strings.HasSuffix(host, "workday.com"):
		return ATSWorkday
	}
	return ATSNone
}

// ExtractText returns the readable text of an HTML page fetched from urlStr.
// The first matching content selector wins; otherwise the whole body is used.
func ExtractText(urlStr, html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML from %s: %w", urlStr, err)
	}

	p := profiles[DetectATS(urlStr)]
	doc.Find(alwaysNoise).Remove()
	doc.Find(strings.Join(p.noise, ", ")).Remove()

	root := doc.Find("body")
	for _, sel := range p.content {
		if match := doc.Find(sel); match.Length() > 0 {
			root = match.First()
			break
		}
	}
	return squeeze(root.Text()), nil
}

// squeeze trims every line and drops the blank ones.
func squeeze(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

package tracking

import "github.com/mssola/useragent"

// deviceLabel condenses a User-Agent header into a short "platform/browser"
// label for the plays table.
func deviceLabel(uaString string) string {
	if uaString == "" {
		return ""
	}

	ua := useragent.New(uaString)

	platform := "desktop"
	if ua.Bot() {
		platform = "bot"
	} else if ua.Mobile() {
		platform = "mobile"
	}

	browser, _ := ua.Browser()
	if browser == "" {
		return platform
	}
	return platform + "/" + browser
}

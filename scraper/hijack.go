package scraper

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to CDP resource types. Names are
// matched case-insensitively.
var resourceTypes = map[string]proto.NetworkResourceType{
	"image":      proto.NetworkResourceTypeImage,
	"stylesheet": proto.NetworkResourceTypeStylesheet,
	"font":       proto.NetworkResourceTypeFont,
	"media":      proto.NetworkResourceTypeMedia,
	"script":     proto.NetworkResourceTypeScript,
}

type resourceSet map[proto.NetworkResourceType]struct{}

// parseBlocked turns scraper.blocked_resources into a set. Unknown names
// are logged and skipped.
func parseBlocked(names []string) resourceSet {
	set := make(resourceSet, len(names))
	for _, name := range names {
		rt, ok := resourceTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			slog.Warn("ignoring unknown blocked resource type", "type", name)
			continue
		}
		set[rt] = struct{}{}
	}
	return set
}

// blockResources fails every request of a blocked type on page. Movie
// pages only need their markup and inline JSON. It returns nil when
// nothing is blocked; otherwise the caller stops the router.
func blockResources(page *rod.Page, blocked resourceSet) *rod.HijackRouter {
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if _, ok := blocked[h.Request.Type()]; ok {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()

	return router
}

package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// OverlaySelectors are the sign-in prompts LinkedIn layers over public
// posts, in the order they are tried. Logged-out visits usually get
// the contextual sign-in modal; the aria-label button covers the older
// dismissible variant.
var OverlaySelectors = []string{
	`button[aria-label="Dismiss"]`,
	`button.modal__dismiss`,
	`[data-tracking-control-name="public_post_feed-secondary-cta"]`,
	`button.contextual-sign-in-modal__modal-dismiss-btn`,
}

// overlaySettle gives the modal's close animation time to finish
// before the screenshot.
const overlaySettle = 500 * time.Millisecond

// dismissScript clicks the first visible overlay control and returns
// its selector, or an empty string when no overlay is up. Running it
// as one evaluation avoids a per-selector wait when nothing matches.
var dismissScript = buildDismissScript(OverlaySelectors)

func buildDismissScript(selectors []string) string {
	list, err := json.Marshal(selectors)
	if err != nil {
		panic(fmt.Sprintf("capture: cannot encode overlay selectors: %v", err))
	}
	return fmt.Sprintf(`(() => {
	const selectors = %s;
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el && el.offsetParent !== null) {
			el.click();
			return sel;
		}
	}
	return '';
})()`, list)
}

// dismissOverlays evaluates dismissScript in the page and records
// which selector was clicked. Overlay handling is best effort and
// never fails the capture.
func dismissOverlays(clicked *string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.Evaluate(dismissScript, clicked).Do(ctx); err != nil {
			*clicked = ""
			return nil
		}
		if *clicked != "" {
			return chromedp.Sleep(overlaySettle).Do(ctx)
		}
		return nil
	})
}

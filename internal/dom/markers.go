package dom

// Marker attribute names on the document's top-level node. The blur hover
// handlers installed in-page consult MarkerEnabled and MarkerBlurThumbs
// live, so the Go side and the injected JS must agree on these.
const (
	MarkerEnabled       = "data-dt-enabled"
	MarkerHideHome      = "data-dt-hide-home"
	MarkerHideShorts    = "data-dt-hide-shorts"
	MarkerHideComments  = "data-dt-hide-comments"
	MarkerHideSidebar   = "data-dt-hide-sidebar"
	MarkerHideEndscreen = "data-dt-hide-endscreen"
	MarkerHideRecs      = "data-dt-hide-recs"
	MarkerHideGuide     = "data-dt-hide-guide"
	MarkerBlurThumbs    = "data-dt-blur-thumbs"
)

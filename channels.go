package sniperz

// DefaultChannels is the curated channel list the tool ships with. The CLI can
// replace it with a file of one channel URL per line.
var DefaultChannels = []string{
	"https://www.youtube.com/@Allprocessofworld_shorts/shorts",
	"https://www.youtube.com/@TechOnlineShow/shorts",
	"https://www.youtube.com/@Craftsman_Vlog/shorts",
	"https://www.youtube.com/@BestWorkingDay/shorts",
	"https://www.youtube.com/@craftsmanclips/shorts",
	"https://www.youtube.com/@SiragusaMatranga/shorts",
	"https://www.youtube.com/@CraftsmanVision/shorts",
	"https://www.youtube.com/@amazingskills012/shorts",
	"https://www.youtube.com/@Amazing-Making-Process/shorts",
	"https://www.youtube.com/@wisdompouchannel/shorts",
	"https://www.youtube.com/@Deliciousfood-sr1di/shorts",
	"https://www.youtube.com/@theworldspins/shorts",
	"https://www.youtube.com/@CraftsmanWhale/shorts",
	"https://www.youtube.com/@hardworkingday/shorts",
}

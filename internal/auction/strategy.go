package auction

import (
	"github.com/prajwalbharadwajbm/bidengine/internal/models"
)

// Strategy names the algorithm that produced a selection
type Strategy string

const (
	// StrategySemantic ranks ads by similarity to the request's video.
	StrategySemantic Strategy = "semantic"

	// StrategyHighestBid picks the eligible campaign with the largest CPM.
	StrategyHighestBid Strategy = "highest_bid"

	// StrategyRandomEligible picks uniformly among eligible campaigns.
	StrategyRandomEligible Strategy = "random_eligible"
)

// bid-selector variant served by the random-eligible algorithm
const variantRandom = "B"

// ChooseStrategy routes a request. A video reference always wins; otherwise
// the experiment variant decides between the two CPM auctions and anything
// other than "B" (including "control") runs the highest-bid auction.
func ChooseStrategy(req models.BidRequest, variant string) Strategy {
	if req.HasVideo() {
		return StrategySemantic
	}
	return auctionStrategy(variant)
}

func auctionStrategy(variant string) Strategy {
	if variant == variantRandom {
		return StrategyRandomEligible
	}
	return StrategyHighestBid
}

/*
Package streamfee implements a streaming fee module for baskets.

The fee accrues continuously as an annualized percentage of the basket
supply. Settlement mints new basket tokens to the fee recipient and the
protocol treasury, and rescales the basket position multiplier so that the
value backing each token shrinks by exactly the inflation that was minted.

The module keeps one FeeState per basket. It must be attached to the basket
(pending) before the manager initializes it, and it operates on baskets only
through the BasketController interface.
*/
package streamfee

// ModuleName is the name under which this extension attaches to baskets and
// appears on the configuration whitelist.
const ModuleName = "streamfee"

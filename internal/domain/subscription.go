// Package domain contains the core business entities for localtube.
package domain

// ToggleSubscription flips the subscription relationship between a
// subscriber and a channel, updating both sides of the social graph in
// one place. Call sites must never touch Subscribers or SubscribedTo
// directly; routing every change through this function is what keeps
// the bidirectional invariant from diverging.
//
// Returns true if the subscriber follows the channel after the toggle.
func ToggleSubscription(subscriber, channel *User) bool {
	if subscriber.IsSubscribedTo(channel.ID) {
		subscriber.SubscribedTo = removeID(subscriber.SubscribedTo, channel.ID)
		channel.Subscribers = removeID(channel.Subscribers, subscriber.ID)
		return false
	}
	subscriber.SubscribedTo = addID(subscriber.SubscribedTo, channel.ID)
	channel.Subscribers = addID(channel.Subscribers, subscriber.ID)
	return true
}

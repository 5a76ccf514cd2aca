package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkHops_WalksThroughFollowedUserToTheirLikedItem(t *testing.T) {
	rows := []relationRow{
		{FromUserID: 1, ToItemID: 100, Type: "like", Status: "active"},
		{FromUserID: 1, ToUserID: 2, Type: "follow", Status: "active"},
		{FromUserID: 2, ToItemID: 200, Type: "like", Status: "active"},
	}

	weights := walkHops(rows, 1, 2, 0.5, 10)

	w200, has200 := weights[200]
	assert.True(t, has200, "item liked by a user the seed user follows must surface via the 2-hop walk")
	assert.Equal(t, 0.5, w200)

	_, has100 := weights[100]
	assert.False(t, has100, "items already directly liked by the user should not reappear via multi-hop")
}

func TestWalkHops_StopsAtMaxHops(t *testing.T) {
	rows := []relationRow{
		{FromUserID: 1, ToUserID: 2, Type: "follow", Status: "active"},
		{FromUserID: 2, ToUserID: 3, Type: "follow", Status: "active"},
		{FromUserID: 3, ToItemID: 300, Type: "like", Status: "active"},
	}

	weights := walkHops(rows, 1, 2, 0.5, 10)
	_, has300 := weights[300]
	assert.False(t, has300, "an item three hops away must not surface when max_hops is 2")
}

func TestWalkHops_RespectsLimitByKeepingHighestWeights(t *testing.T) {
	rows := []relationRow{
		{FromUserID: 1, ToUserID: 2, Type: "follow", Status: "active"},
		{FromUserID: 1, ToUserID: 3, Type: "follow", Status: "active"},
		{FromUserID: 2, ToItemID: 20, Type: "like", Status: "active"},
		{FromUserID: 2, ToItemID: 21, Type: "like", Status: "active"},
		{FromUserID: 3, ToItemID: 30, Type: "like", Status: "active"},
	}

	weights := walkHops(rows, 1, 2, 0.5, 2)
	assert.Len(t, weights, 2)
}

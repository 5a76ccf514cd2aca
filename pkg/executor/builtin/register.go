// Package builtin holds the concrete node library from spec.md §4.3:
// recall, rank, filter, blend, and transform implementations, each
// registered under its symbolic type name.
package builtin

import "github.com/kleon1024/mini-feeds/pkg/executor"

// RegisterBuiltins registers every node type this repository ships with
// against reg, mirroring the teacher's RegisterBuiltins entry point
// (backend/cmd/server/main.go wiring).
func RegisterBuiltins(reg *executor.Registry) {
	reg.Register("recall.random", NewRandomRecall())
	reg.Register("recall.tag", NewTagRecall())
	reg.Register("recall.popular", NewPopularRecall())
	reg.Register("recall.vector", NewVectorRecall())
	reg.Register("recall.multi_hop", NewMultiHopRecall())
	reg.Register("recall.ad", NewAdRecall())
	reg.Register("recall.product", NewProductRecall())

	reg.Register("rank.pre_rank", NewPreRank())
	reg.Register("rank.feature_extract", NewFeatureExtract())
	reg.Register("rank.rank", NewRank())
	reg.Register("rank.rerank", NewRerank())

	reg.Register("filter.basic", NewBasicFilter())
	reg.Register("filter.user_history", NewUserHistoryFilter())
	reg.Register("filter.diversity", NewDiversityFilter())
	reg.Register("filter.n_out_m", NewNOutMFilter())

	reg.Register("blend.snake_merge", NewSnakeMergeBlend())

	reg.Register("transform.response_format", NewResponseFormat())
}

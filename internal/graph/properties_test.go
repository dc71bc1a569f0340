package graph_test

import (
	"fmt"
	"strings"
	"testing"

	"db-graph/internal/graph"
	"db-graph/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type randomRef struct {
	name   string
	target int
}

type randomSchema struct {
	tables []string
	refs   [][]randomRef
}

// newRandomSchema generates a schema with self-loops, mutual references and longer
// cycles mixed in at random.
func newRandomSchema(seed int64) randomSchema {
	faker := gofakeit.New(seed)
	n := faker.Number(2, 30)

	rs := randomSchema{tables: make([]string, n), refs: make([][]randomRef, n)}
	for i := range rs.tables {
		noun := strings.ToLower(strings.ReplaceAll(faker.Noun(), " ", "_"))
		rs.tables[i] = fmt.Sprintf("%s_%02d", noun, i)
	}
	for i := range rs.tables {
		refs := faker.Number(0, 3)
		for j := 0; j < refs; j++ {
			rs.refs[i] = append(rs.refs[i], randomRef{
				name:   fmt.Sprintf("fk_%02d_%d", i, j),
				target: faker.Number(0, n-1),
			})
		}
	}
	return rs
}

// build materializes fresh tables, shuffling table, column and constraint order with
// the given shuffle seed.
func (rs randomSchema) build(t *testing.T, shuffleSeed int64) *schema.Database {
	t.Helper()
	faker := gofakeit.New(shuffleSeed)

	tables := make([]*schema.Table, len(rs.tables))
	for i, name := range rs.tables {
		tbl := &schema.Table{Name: name, Columns: []*schema.Column{{Name: "id", IsPK: true}}}
		for _, ref := range rs.refs[i] {
			col := ref.name + "_col"
			tbl.Columns = append(tbl.Columns, &schema.Column{Name: col, IsNullable: true})
			tbl.ForeignKeys = append(tbl.ForeignKeys, &schema.ForeignKey{
				Name:       ref.name,
				Columns:    []string{col},
				RefTable:   rs.tables[ref.target],
				RefColumns: []string{"id"},
			})
		}
		faker.ShuffleAnySlice(tbl.Columns)
		faker.ShuffleAnySlice(tbl.ForeignKeys)
		tables[i] = tbl
	}
	faker.ShuffleAnySlice(tables)

	db, err := schema.NewDatabase("random", "public", tables)
	require.NoError(t, err)
	return db
}

func TestResolve_Properties(t *testing.T) {
	for seed := int64(1); seed <= 60; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rs := newRandomSchema(seed)
			db := rs.build(t, seed)

			snap, err := graph.Resolve(db)
			require.NoError(t, err)

			insertion := snap.InsertionOrder()
			deletion := snap.DeletionOrder()

			// Totality
			require.Len(t, insertion, len(rs.tables))
			seen := make(map[schema.TableKey]bool)
			for _, k := range insertion {
				assert.False(t, seen[k], "%s appears twice", k)
				seen[k] = true
			}

			// Reversal law
			for i := range insertion {
				assert.Equal(t, insertion[i], deletion[len(deletion)-1-i])
			}

			// NORMAL edges point forward in the insertion order, which also rules out
			// any NORMAL cycle or self-loop.
			pos := make(map[schema.TableKey]int, len(insertion))
			for i, k := range insertion {
				pos[k] = i
			}
			for _, e := range snap.Edges() {
				if e.SelfLoop() {
					assert.True(t, e.Deferred(), "self-loop %s must be deferred", e.Name)
					continue
				}
				if !e.Deferred() {
					assert.Less(t, pos[e.Parent], pos[e.Child], "edge %s", e.Name)
				}
			}
		})
	}
}

func TestResolve_DeterministicAcrossLoadOrder(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		rs := newRandomSchema(seed)

		first, err := graph.Resolve(rs.build(t, 1000+seed))
		require.NoError(t, err)
		second, err := graph.Resolve(rs.build(t, 2000+seed))
		require.NoError(t, err)

		assert.Equal(t, first.InsertionOrder(), second.InsertionOrder(), "seed %d", seed)
		assert.Equal(t, first.DeletionOrder(), second.DeletionOrder(), "seed %d", seed)
		assert.Equal(t, deferredNames(first), deferredNames(second), "seed %d", seed)
	}
}

func TestResolve_DeferredEdgesOnlyInsideCycles(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		db := newRandomSchema(seed).build(t, seed)
		snap, err := graph.Resolve(db)
		require.NoError(t, err)

		// Every deferred edge closes a cycle in the full graph: its child reaches its
		// parent when all edges are considered.
		adj := make(map[schema.TableKey][]schema.TableKey)
		for _, e := range snap.Edges() {
			adj[e.Parent] = append(adj[e.Parent], e.Child)
		}
		for _, e := range snap.Deferred() {
			assert.True(t, reachable(adj, e.Child, e.Parent), "seed %d: %s deferred outside a cycle", seed, e.Name)
		}
	}
}

func reachable(adj map[schema.TableKey][]schema.TableKey, from, to schema.TableKey) bool {
	seen := map[schema.TableKey]bool{from: true}
	stack := []schema.TableKey{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, m := range adj[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return false
}

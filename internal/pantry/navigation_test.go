// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pantry

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipesURL(t *testing.T) {
	link, ok := RecipesURL("/receitas", []string{"arroz", "feijão"})
	require.True(t, ok)
	assert.Equal(t, "/receitas?ingredientes=arroz%2Cfeij%C3%A3o", link)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, []string{"arroz", "feijão"}, strings.Split(parsed.Query().Get(RecipesQueryParam), ","))
}

func TestRecipesURL_Empty(t *testing.T) {
	_, ok := RecipesURL("/receitas", nil)
	assert.False(t, ok)
}

func TestRecipesURL_ExistingQuery(t *testing.T) {
	link, ok := RecipesURL("/receitas?lang=pt", []string{"ovo"})
	require.True(t, ok)
	assert.Equal(t, "/receitas?lang=pt&ingredientes=ovo", link)
}

func TestEncodeURIComponent(t *testing.T) {
	cases := map[string]string{
		"leite de coco": "leite%20de%20coco",
		"a+b&c=d":       "a%2Bb%26c%3Dd",
		"-_.!~*'()":     "-_.!~*'()",
		"maçã":          "ma%C3%A7%C3%A3",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, EncodeURIComponent(in), in)
	}
}

// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// NoAnswer is shown when the upstream reply carries no message content.
const NoAnswer = "Sem resposta"

// RecipePrompt asks for recipe ideas using only the listed ingredients.
func RecipePrompt(items []string) string {
	return fmt.Sprintf("Sugira receitas simples que eu possa preparar usando apenas estes ingredientes: %s. "+
		"Responda em português com o nome de cada receita e um breve modo de preparo.", strings.Join(items, ", "))
}

// AnswerText extracts the first choice's message content from a chat completion body.
func AnswerText(body []byte) string {
	content := strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String())
	if content == "" {
		return NoAnswer
	}
	return content
}

// SuggestRecipes sends the recipe prompt for items and returns the answer text.
func (c *Client) SuggestRecipes(ctx context.Context, items []string) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyPrompt
	}
	body, err := c.Complete(ctx, RecipePrompt(items))
	if err != nil {
		return "", err
	}
	return AnswerText(body), nil
}

package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/legalsearch/legalrag/common/logger"
)

// tokenCounter bounds assembled context by model tokens. The cl100k_base
// encoding needs its vocabulary file, which may be unreachable offline; in
// that case counting degrades to rune counts, which overestimates for CJK
// text and therefore still respects the budget.
type tokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (c *tokenCounter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warnf("load cl100k_base encoding failed, counting runes instead: %v", err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

func (c *tokenCounter) Count(text string) int {
	if enc := c.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len([]rune(text))
}

// Truncate cuts text to at most budget tokens.
func (c *tokenCounter) Truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	if enc := c.encoding(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= budget {
			return text
		}
		return enc.Decode(tokens[:budget])
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget])
}

package tokens

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// DefaultEncoding is used when neither a model nor an encoding is given.
const DefaultEncoding = string(tokenizer.Cl100kBase)

// Counter estimates prompt sizes with a tiktoken codec. It is safe for
// concurrent use.
type Counter struct {
	mu    sync.Mutex
	codec tokenizer.Codec
}

func getCodec(model, encoding string) (tokenizer.Codec, error) {
	if model != "" {
		c, err := tokenizer.ForModel(tokenizer.Model(model))
		if err == nil {
			return c, nil
		}
		if encoding == "" {
			return nil, errors.Wrapf(err, "creating tokenizer for model %s", model)
		}
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	c, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, errors.Wrapf(err, "creating tokenizer for encoding %s", encoding)
	}
	return c, nil
}

// NewCounter picks the codec for model, falling back to encoding when the
// model is unknown to tiktoken.
func NewCounter(model, encoding string) (*Counter, error) {
	c, err := getCodec(model, encoding)
	if err != nil {
		return nil, err
	}
	return &Counter{codec: c}, nil
}

// NewDefaultCounter returns a cl100k_base counter, which is close enough for
// estimating gemini prompts as well.
func NewDefaultCounter() *Counter {
	c, err := NewCounter("", DefaultEncoding)
	if err != nil {
		// cl100k_base is compiled into the tokenizer package
		panic(err)
	}
	return c
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) (int, error) {
	if c == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "encoding text")
	}
	return len(ids), nil
}

// Encode returns the token ids and their string pieces.
func (c *Counter) Encode(text string) ([]uint, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codec.Encode(text)
}

// Decode turns token ids back into text.
func (c *Counter) Decode(ids []uint) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codec.Decode(ids)
}

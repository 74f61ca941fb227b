package parser

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/schema"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// Decode fills dst from form-style values using the `schema` struct tags
func Decode(values url.Values, dst interface{}) error {
	if err := decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("failed to decode query: %w", err)
	}
	return nil
}

// QueryParser decodes the query string of the current request into dst
func QueryParser(c *fiber.Ctx, dst interface{}) error {
	values := url.Values{}
	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return Decode(values, dst)
}

package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/streamgrid/types"
)

func raw(subject, data string) types.RawMessage {
	return types.RawMessage{Subject: subject, Data: []byte(data), ReceivedAt: time.Unix(100, 0)}
}

func TestDecode_Update(t *testing.T) {
	msg, err := Decode(raw("grid.in", `{"topic":"positions","key":"1","op":"update","fields":{"price":10,"tags":["a"]}}`))
	require.NoError(t, err)

	require.Equal(t, "positions", msg.Topic)
	require.Equal(t, types.Key("1"), msg.Key)
	require.Equal(t, types.OpUpdate, msg.Op)
	require.Equal(t, 10.0, msg.Fields["price"])
	require.Equal(t, []any{"a"}, msg.Fields["tags"])
	require.Equal(t, time.Unix(100, 0), msg.ReceivedAt)
}

func TestDecode_NumericKeys(t *testing.T) {
	cases := map[string]types.Key{
		`1`:     "1",
		`42`:    "42",
		`-7`:    "-7",
		`1.5`:   "1.5",
		`2.0`:   "2",
		`"007"`: "007",
	}
	for key, want := range cases {
		t.Run(key, func(t *testing.T) {
			msg, err := Decode(raw("", `{"topic":"t","key":`+key+`,"op":"remove"}`))
			require.NoError(t, err)
			require.Equal(t, want, msg.Key)
		})
	}
}

func TestDecode_RemoveIgnoresFields(t *testing.T) {
	msg, err := Decode(raw("", `{"topic":"t","key":"1","op":"remove","fields":{"x":1}}`))
	require.NoError(t, err)
	require.True(t, msg.IsRemove())
	require.Nil(t, msg.Fields)
}

func TestDecode_TopicFallsBackToSubject(t *testing.T) {
	msg, err := Decode(raw("grid.positions", `{"key":"1","op":"update"}`))
	require.NoError(t, err)
	require.Equal(t, "grid.positions", msg.Topic)
	require.Nil(t, msg.Fields)
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]string{
		"invalid json": `{"key":`,
		"missing key":  `{"topic":"t","op":"update"}`,
		"null key":     `{"topic":"t","key":null,"op":"update"}`,
		"empty key":    `{"topic":"t","key":"","op":"update"}`,
		"object key":   `{"topic":"t","key":{"a":1},"op":"update"}`,
		"bad op":       `{"topic":"t","key":"1","op":"upsert"}`,
		"missing op":   `{"topic":"t","key":"1"}`,
		"not object":   `[1,2]`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw("grid.in", data))
			require.ErrorIs(t, err, types.ErrMessageParse)

			var parseErr *types.MessageParseError
			require.ErrorAs(t, err, &parseErr)
			require.Equal(t, "grid.in", parseErr.Subject)
		})
	}
}

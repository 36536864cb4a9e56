// Package models holds the JSON shapes the HTTP API answers with.
package models

import (
	"net/http"
	"time"

	"raptor.transitrouter.org/internal/clock"
)

// APIVersion is sent with every response.
const APIVersion = 1

// ResponseModel is the envelope around every API answer.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
	Data        interface{} `json:"data,omitempty"`
}

type EntryData struct {
	Entry interface{} `json:"entry"`
}

type ListData struct {
	List          interface{} `json:"list"`
	LimitExceeded bool        `json:"limitExceeded"`
}

// ResponseCurrentTime is the clock's time in Unix milliseconds.
func ResponseCurrentTime(c clock.Clock) int64 {
	return c.Now().UnixMilli()
}

func NewResponse(code int, text string, data interface{}, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: ResponseCurrentTime(c),
		Text:        text,
		Version:     APIVersion,
		Data:        data,
	}
}

func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return NewResponse(http.StatusOK, "OK", data, c)
}

func NewEntryResponse(entry interface{}, c clock.Clock) ResponseModel {
	return NewOKResponse(EntryData{Entry: entry}, c)
}

func NewListResponse(list interface{}, limitExceeded bool, c clock.Clock) ResponseModel {
	return NewOKResponse(ListData{List: list, LimitExceeded: limitExceeded}, c)
}

type CurrentTimeModel struct {
	Time         int64  `json:"time"`
	ReadableTime string `json:"readableTime"`
}

func NewCurrentTimeData(t time.Time) EntryData {
	return EntryData{Entry: CurrentTimeModel{
		Time:         t.UnixMilli(),
		ReadableTime: t.Format(time.RFC3339),
	}}
}

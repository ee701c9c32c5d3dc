package core

import (
	"canvasgrab/lib/restyutil"

	"github.com/go-resty/resty/v2"
)

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

func InstrumentHttp(client *resty.Client) {
	restyutil.InstrumentClient(client, restyInstrumentOutput)
}

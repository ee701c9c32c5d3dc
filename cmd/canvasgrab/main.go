package main

import (
	"canvasgrab/cmd/canvasgrab/commands"
	"canvasgrab/lib/serviceutil"
	"canvasgrab/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(false)
	tel, err := telemetry.SetupFromEnv(ctx, "canvasgrab")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer tel.Shutdown(ctx)

	commands.ExecuteContext(ctx)
}

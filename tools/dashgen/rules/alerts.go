package rules

// AlertRules returns the operational alerts for a running monitor.
func AlertRules() PrometheusRule {
	return resource("stockmon-alerts",
		group("stockmon-alerts",
			alert("StockMonitorDown", Critical, "2m",
				`absent(up{job="stock-monitor"})`,
				"Stock monitor is down",
				"The stock-monitor job has been absent for more than 2 minutes."),
			alert("StockMonitorNotReady", Warning, "15m",
				`stockmon_readyz_up == 0`,
				"Stock monitor has not completed a cycle",
				"No monitoring cycle has completed for more than 15 minutes after start."),
			alert("StockMonitorCycleErrors", Warning, "10m",
				`stockmon:cycle_errors:rate5m > 0`,
				"Monitoring cycles are failing",
				"Cycles have been erroring or panicking for more than 10 minutes."),
			alert("StockMonitorFetchesFailing", Warning, "15m",
				`stockmon:fetch_misses:rate5m > 0 and sum(rate(stockmon_fetch_attempts_total{result="hit"}[15m])) == 0`,
				"Every fetch strategy is missing",
				"No strategy has returned product data for 15 minutes. The marketplace may be blocking requests."),
			alert("StockMonitorStateSaveFailures", Warning, "0m",
				`increase(stockmon_state_save_failures_total[15m]) > 0`,
				"Availability state could not be saved",
				"State saves are failing. A restart may re-announce or miss transitions."),
			alert("StockMonitorStateNeverLoaded", Warning, "30m",
				`increase(stockmon_state_save_skipped_total[15m]) > 0`,
				"Availability state has not been loaded since start",
				"The state store has failed every load, so saves are held back and transitions are not persisted."),
			alert("StockMonitorNotificationFailures", Warning, "5m",
				`stockmon:notification_failures:rate5m > 0`,
				"Notification delivery failures detected",
				"Telegram or Discord sends have been failing for more than 5 minutes."),
			alert("StockMonitorHandlerPanics", Warning, "0m",
				`increase(stockmon_http_panics_total[15m]) > 0`,
				"Ops API handler panicked",
				"A request to the ops API panicked. Search the logs for the request ID in the 500 response."),
		),
	)
}

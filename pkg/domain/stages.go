package domain

// stageNames holds the display names shown in the UI. The system is
// operated in Spanish; keys fall through untranslated.
var stageNames = map[StageKey]string{
	StageManualEntry:       "Entrada Manual",
	StageScanningAssigned:  "Asignación de Escaneo",
	StageAISummary:         "Resumen IA",
	StageDecreed:           "Decreto",
	StageDecreePrinted:     "Decreto Impreso",
	StageReportReceived:    "Reporte Recibido",
	StageResponsePrepared:  "Respuesta Preparada",
	StageSignatureProtocol: "Protocolo de Firma",
	StageAcknowledgment:    "Acuse de Recibo",
	StageArchived:          "Archivado",
	StageDraftCreation:     "Creación de Borrador",
	StagePrintedSent:       "Impreso y Enviado",
	StageAwaitingResponse:  "Esperando Respuesta",
	StageReminderSent:      "Recordatorio Enviado",
	StageResponseReceived:  "Respuesta Recibida",
}

var stageDescriptions = map[StageKey]string{
	StageManualEntry:       "Registro manual de entrada del documento",
	StageScanningAssigned:  "Asignación de número de escaneo",
	StageAISummary:         "Generación de resumen con IA",
	StageDecreed:           "Documento decretado a departamento",
	StageDecreePrinted:     "Decreto impreso y enviado",
	StageReportReceived:    "Reporte recibido del departamento",
	StageResponsePrepared:  "Respuesta preparada",
	StageSignatureProtocol: "Protocolo de firma del Ministro",
	StageAcknowledgment:    "Acuse de recibo capturado",
	StageArchived:          "Documento archivado",
	StageDraftCreation:     "Creación del borrador",
	StagePrintedSent:       "Documento impreso y enviado",
	StageAwaitingResponse:  "Esperando respuesta del destinatario",
	StageReminderSent:      "Recordatorio enviado",
	StageResponseReceived:  "Respuesta recibida",
}

// Name returns the display name for a stage key, or the raw key when the
// key is unknown.
func (k StageKey) Name() string {
	if n, ok := stageNames[k]; ok {
		return n
	}
	return string(k)
}

// Description returns the display description for a stage key, or "" when
// the key is unknown.
func (k StageKey) Description() string {
	return stageDescriptions[k]
}

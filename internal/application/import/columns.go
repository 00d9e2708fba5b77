package importapp

// Columns of the upload sheets, as normalized by the spreadsheet reader
const (
	colClient       = "cliente"
	colClientID     = "id_cliente"
	colSalesperson  = "id_vendedor"
	colSupervisor   = "id_supervisor"
	colManager      = "id_gerente"
	colProductType  = "tipo_cota"
	colTableCode    = "id_tabela"
	colGroup        = "grupo"
	colQuota        = "cota"
	colCredit       = "valor_credito"
	colSaleDate     = "data_venda"
	colDueDay       = "dia_vencimento"
	colTerm         = "prazo"
	colAdminFee     = "taxa_adm"
	colFirstAmount  = "valor_primeira_parcela"
	colLevelAmount  = "valor_demais_parcelas"
	colPaidAmount   = "valor_pago"
	colInstallment  = "num_parcela"
	colSaleID       = "id_venda"
	colCancelCutoff = "parcela_cancelamento"
	colEntryID      = "id_lancamento"

	colAdministrator    = "administradora"
	colPercentages      = "lista_percentuais"
	colMinCredit        = "min_credito"
	colMaxCredit        = "max_credito"
	colMinTerm          = "min_prazo"
	colMaxTerm          = "max_prazo"
	colMinAdminFee      = "min_taxa_adm"
	colMaxAdminFee      = "max_taxa_adm"
	colReserveFund      = "fundo_reserva"
	colEmbeddedBid      = "pct_lance_embutido"
	colAdvanceFee       = "taxa_antecipada"
	colAdvanceFeeBasis  = "ref_taxa_antecipada"
	colReadjustment     = "indice_reajuste"
	colContemplation    = "modalidades_contemplacao"
	colChargebackPct    = "pct_estorno"
	colChargebackCutoff = "limite_parcela_estorno"
)

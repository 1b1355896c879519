package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AuroraPeakLabs/points/pkg/points"
)

const dateLayout = "2006-01-02"

type giftRecipientRequest struct {
	UserID string `json:"userId"`
	Points int64  `json:"points"`
}

type giftRequest struct {
	SenderUserID string                 `json:"senderUserId"`
	Recipients   []giftRecipientRequest `json:"recipients"`
}

type exchangeLineRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

type exchangeRequest struct {
	DestinationWalletID string                `json:"destinationWalletId"`
	Lines               []exchangeLineRequest `json:"lines"`
}

type distributeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type transactionItemResponse struct {
	ItemID             string `json:"itemId"`
	Quantity           int64  `json:"quantity"`
	TotalPointsForLine int64  `json:"totalPointsForLine"`
}

type transactionResponse struct {
	TransactionID       string                    `json:"transactionId"`
	ProgramID           string                    `json:"programId"`
	Type                string                    `json:"type"`
	Amount              int64                     `json:"amount"`
	SourceWalletID      *string                   `json:"sourceWalletId,omitempty"`
	DestinationWalletID string                    `json:"destinationWalletId"`
	Items               []transactionItemResponse `json:"items,omitempty"`
	PolicyBreakdown     map[string]int64          `json:"policyBreakdown,omitempty"`
	CreatedAt           string                    `json:"createdAt"`
}

type userDistributionResponse struct {
	UserID    string           `json:"userId"`
	WalletID  string           `json:"walletId"`
	Points    int64            `json:"points"`
	Breakdown map[string]int64 `json:"breakdown"`
}

type distributionResponse struct {
	UsersProcessed      int                        `json:"usersProcessed"`
	PointsDistributed   int64                      `json:"pointsDistributed"`
	TransactionsCreated int                        `json:"transactionsCreated"`
	PerUser             []userDistributionResponse `json:"perUser"`
}

func (requestHandler *handler) handleGift(ctx *gin.Context) {
	programID, err := points.NewProgramID(ctx.Param("programID"))
	if err != nil {
		recordOperation(operationGift, outcomeRejected)
		requestHandler.abortWithError(ctx, operationGift, err)
		return
	}
	var request giftRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		recordOperation(operationGift, outcomeRejected)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	senderUserID, err := points.NewUserID(request.SenderUserID)
	if err != nil {
		recordOperation(operationGift, outcomeRejected)
		requestHandler.abortWithError(ctx, operationGift, err)
		return
	}
	recipients := make([]points.GiftRecipient, 0, len(request.Recipients))
	for _, recipient := range request.Recipients {
		userID, err := points.NewUserID(recipient.UserID)
		if err != nil {
			recordOperation(operationGift, outcomeRejected)
			requestHandler.abortWithError(ctx, operationGift, err)
			return
		}
		amount, err := points.NewPointAmount(recipient.Points)
		if err != nil {
			recordOperation(operationGift, outcomeRejected)
			requestHandler.abortWithError(ctx, operationGift, err)
			return
		}
		recipients = append(recipients, points.GiftRecipient{UserID: userID, Points: amount})
	}

	created, err := requestHandler.service.Gift(ctx.Request.Context(), programID, senderUserID, recipients)
	if err != nil {
		recordOperation(operationGift, outcomeError)
		requestHandler.abortWithError(ctx, operationGift, err)
		return
	}
	recordOperation(operationGift, outcomeOK)
	responses := make([]transactionResponse, 0, len(created))
	for _, transaction := range created {
		responses = append(responses, toTransactionResponse(transaction))
	}
	ctx.JSON(http.StatusCreated, gin.H{"transactions": responses})
}

func (requestHandler *handler) handleExchange(ctx *gin.Context) {
	var request exchangeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		recordOperation(operationExchange, outcomeRejected)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	destinationWalletID, err := points.NewWalletID(request.DestinationWalletID)
	if err != nil {
		recordOperation(operationExchange, outcomeRejected)
		requestHandler.abortWithError(ctx, operationExchange, err)
		return
	}
	lines := make([]points.ExchangeLine, 0, len(request.Lines))
	for _, line := range request.Lines {
		itemID, err := points.NewItemID(line.ItemID)
		if err != nil {
			recordOperation(operationExchange, outcomeRejected)
			requestHandler.abortWithError(ctx, operationExchange, err)
			return
		}
		quantity, err := points.NewQuantity(line.Quantity)
		if err != nil {
			recordOperation(operationExchange, outcomeRejected)
			requestHandler.abortWithError(ctx, operationExchange, err)
			return
		}
		lines = append(lines, points.ExchangeLine{ItemID: itemID, Quantity: quantity})
	}

	created, err := requestHandler.service.Exchange(ctx.Request.Context(), destinationWalletID, lines)
	if err != nil {
		recordOperation(operationExchange, outcomeError)
		requestHandler.abortWithError(ctx, operationExchange, err)
		return
	}
	recordOperation(operationExchange, outcomeOK)
	ctx.JSON(http.StatusCreated, gin.H{"transaction": toTransactionResponse(created)})
}

func (requestHandler *handler) handleDistribute(ctx *gin.Context) {
	programID, err := points.NewProgramID(ctx.Param("programID"))
	if err != nil {
		recordOperation(operationDistribute, outcomeRejected)
		requestHandler.abortWithError(ctx, operationDistribute, err)
		return
	}
	var request distributeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		recordOperation(operationDistribute, outcomeRejected)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	from, err := time.Parse(dateLayout, request.From)
	if err != nil {
		recordOperation(operationDistribute, outcomeRejected)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := time.Parse(dateLayout, request.To)
	if err != nil {
		recordOperation(operationDistribute, outcomeRejected)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	dateRange, err := points.NewDateRange(from, to)
	if err != nil {
		recordOperation(operationDistribute, outcomeRejected)
		requestHandler.abortWithError(ctx, operationDistribute, err)
		return
	}

	summary, err := requestHandler.service.Distribute(ctx.Request.Context(), programID, dateRange)
	if err != nil {
		recordOperation(operationDistribute, outcomeError)
		requestHandler.abortWithError(ctx, operationDistribute, err)
		return
	}
	recordOperation(operationDistribute, outcomeOK)
	perUser := make([]userDistributionResponse, 0, len(summary.PerUser))
	for _, userSummary := range summary.PerUser {
		perUser = append(perUser, userDistributionResponse{
			UserID:    userSummary.UserID.String(),
			WalletID:  userSummary.WalletID.String(),
			Points:    userSummary.Points,
			Breakdown: toBreakdownResponse(userSummary.Breakdown),
		})
	}
	ctx.JSON(http.StatusOK, distributionResponse{
		UsersProcessed:      summary.UsersProcessed,
		PointsDistributed:   summary.PointsDistributed,
		TransactionsCreated: summary.TransactionsCreated,
		PerUser:             perUser,
	})
}

func toTransactionResponse(transaction points.Transaction) transactionResponse {
	var sourceWalletID *string
	if transaction.SourceWalletID != nil {
		value := transaction.SourceWalletID.String()
		sourceWalletID = &value
	}
	items := make([]transactionItemResponse, 0, len(transaction.Items))
	for _, item := range transaction.Items {
		items = append(items, transactionItemResponse{
			ItemID:             item.ItemID.String(),
			Quantity:           item.Quantity,
			TotalPointsForLine: item.TotalPointsForLine,
		})
	}
	return transactionResponse{
		TransactionID:       transaction.TransactionID,
		ProgramID:           transaction.ProgramID.String(),
		Type:                string(transaction.Type),
		Amount:              transaction.Amount,
		SourceWalletID:      sourceWalletID,
		DestinationWalletID: transaction.DestinationWalletID.String(),
		Items:               items,
		PolicyBreakdown:     toBreakdownResponse(transaction.PolicyBreakdown),
		CreatedAt:           time.Unix(transaction.CreatedUnixUTC, 0).UTC().Format(time.RFC3339),
	}
}

func toBreakdownResponse(breakdown map[points.PolicyType]int64) map[string]int64 {
	if len(breakdown) == 0 {
		return nil
	}
	response := make(map[string]int64, len(breakdown))
	for policyType, amount := range breakdown {
		response[string(policyType)] = amount
	}
	return response
}

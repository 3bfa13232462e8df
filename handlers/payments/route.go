package payments

import "github.com/gin-gonic/gin"

func RegisterPaymentRoutes(r *gin.Engine) {
	p := r.Group("/payments")
	{
		p.GET("/token", GetAccessToken)
		p.GET("/mpesa-number", GetMpesaNumber)
		p.POST("/mpesa-number", SaveMpesaNumber)
		p.POST("/stk-push", LipaNaMpesa)
		p.POST("/callback", StkPushCallback)
		p.POST("/validation", Validation)
		p.POST("/register-urls", RegisterURLs)
		p.GET("/on-delivery", PayOnDelivery)
		p.GET("/bank-transfer", BankTransfer)
		p.GET("/completed", PaymentCompleted)
		p.POST("/completed", PaymentCompleted)
		p.GET("/cancelled", PaymentCancelled)
		p.POST("/cancelled", PaymentCancelled)
	}
}
